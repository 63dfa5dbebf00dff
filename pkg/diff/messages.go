package diff

import "github.com/chatsync/b2csync/pkg/models"

// NewMessages filters candidates down to the ones not already present on
// the chat, identified by stable message id (spec §4.5.2 step 6: "insert
// only messages not already present... Never delete a message"). There is
// no field-level diff for messages — once inserted a message is immutable.
func NewMessages(existingIDs map[string]bool, candidates []models.Message) []models.Message {
	var fresh []models.Message
	for _, m := range candidates {
		if !existingIDs[m.ID] {
			fresh = append(fresh, m)
		}
	}
	return fresh
}
