package transform

import (
	"sort"
	"strings"

	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/upstream"
)

// broadcastTagMarkers are substrings (case-insensitive) that mark a chat's
// tags as broadcast-originated (spec §4.5.2 step 4).
var broadcastTagMarkers = []string{"broadcast", "campaign", "mass_message", "bulk"}

// detectDirection implements the insert-time direction rule (spec §4.5.2
// step 4). messages must already be sorted by timestamp ascending.
func detectDirection(messages []upstream.RawMessage, tags []string) models.Direction {
	if len(messages) == 0 {
		return models.DirectionIncoming
	}
	first := messages[0]
	if first.Incoming {
		return models.DirectionIncoming
	}
	if first.Broadcasted || tagsContainBroadcastMarker(tags) {
		return models.DirectionOutgoingBroadcast
	}
	return models.DirectionOutgoing
}

func tagsContainBroadcastMarker(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, marker := range broadcastTagMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// nextDirection applies the one-way outgoing*→incoming conversion rule on
// update (spec §4.5.2 step 4, §9 open question #2): originalDirection never
// changes; direction only ever moves from an outgoing* value to incoming,
// triggered by the presence of any customer message.
func nextDirection(current models.Direction, hasIncomingMessage bool) models.Direction {
	if hasIncomingMessage && (current == models.DirectionOutgoing || current == models.DirectionOutgoingBroadcast) {
		return models.DirectionIncoming
	}
	return current
}

func sortMessagesByTimestamp(messages []upstream.RawMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
