package diff

import "github.com/chatsync/b2csync/pkg/models"

// ChatResult extends Result with the status-transition fields the Transform
// Engine needs to append a ChatStatusHistory row (spec §4.5.3: "For chats,
// also emit statusChanged, previousStatus, newStatus").
type ChatResult struct {
	*Result
	StatusChanged   bool
	PreviousStatus  models.ChatStatus
	NewStatus       models.ChatStatus
}

// Chats compares an existing Chat against freshly normalized field values.
// Identity fields (upstreamId, originalDirection) and fields owned
// exclusively by SLA recomputation are excluded — callers recompute SLA
// unconditionally whenever HasChanges is true (spec §4.5.2 step 5).
func Chats(existing *models.Chat, next *models.Chat) *ChatResult {
	r := newResult()
	c := &fieldComparer{result: r}

	compareValue(c, "provider", existing.Provider, next.Provider)
	compareValue(c, "status", existing.Status, next.Status)
	c.compareString("alias", existing.Alias, next.Alias)
	c.compareJSON("tags", toAnySlice(existing.Tags), toAnySlice(next.Tags))
	compareValue(c, "direction", existing.Direction, next.Direction)
	c.compareTime("openedAt", existing.OpenedAt, next.OpenedAt)
	c.compareTime("pickedUpAt", existing.PickedUpAt, next.PickedUpAt)
	c.compareTime("responseAt", existing.ResponseAt, next.ResponseAt)
	c.compareTime("closedAt", existing.ClosedAt, next.ClosedAt)
	compareValue(c, "durationSeconds", derefInt(existing.DurationSeconds), derefInt(next.DurationSeconds))
	c.compareTime("pollStartedAt", existing.PollStartedAt, next.PollStartedAt)
	c.compareTime("pollCompletedAt", existing.PollCompletedAt, next.PollCompletedAt)
	c.compareTime("pollAbandonedAt", existing.PollAbandonedAt, next.PollAbandonedAt)
	c.compareJSON("pollResponse", existing.PollResponse, next.PollResponse)

	return &ChatResult{
		Result:         r,
		StatusChanged:  existing.Status != next.Status,
		PreviousStatus: existing.Status,
		NewStatus:      next.Status,
	}
}

func toAnySlice(tags []string) []any {
	out := make([]any, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
