package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chatsync/b2csync/pkg/diff"
	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/sla"
	"github.com/chatsync/b2csync/pkg/upstream"
)

// processChat implements §4.5.2: nested-entity extraction, normalization,
// direction detection, chat upsert with SLA recomputation, and message
// insertion for one pending raw_chats row.
func (e *Engine) processChat(ctx context.Context, raw models.RawRecord, syncID, transformID string) (outcome, error) {
	var rc upstream.RawChat
	if err := json.Unmarshal(raw.RawJSON, &rc); err != nil {
		return outcomeFailed, fmt.Errorf("unmarshal raw chat: %w", err)
	}
	if rc.ChatID == "" {
		return outcomeFailed, fmt.Errorf("chat missing chat_id")
	}

	now := time.Now()

	var agentID, contactID, departmentID *string

	if rc.AgentName != nil && *rc.AgentName != "" {
		a, err := e.repo.upsertAgentByName(ctx, *rc.AgentName)
		if err != nil {
			return outcomeFailed, fmt.Errorf("upsert agent: %w", err)
		}
		agentID = &a.ID
	}
	if rc.ContactID != nil && *rc.ContactID != "" {
		c, err := e.upsertContactStub(ctx, *rc.ContactID, rc.ContactName, now)
		if err != nil {
			return outcomeFailed, fmt.Errorf("upsert contact stub: %w", err)
		}
		contactID = &c.ID
	}
	if rc.DepartmentCode != nil && *rc.DepartmentCode != "" {
		d, err := e.repo.upsertDepartmentByCode(ctx, *rc.DepartmentCode)
		if err != nil {
			return outcomeFailed, fmt.Errorf("upsert department: %w", err)
		}
		departmentID = &d.ID
	}

	provider := normalizeProvider(rc.Provider)
	status := models.ChatStatus(rc.Status)
	durationSeconds := parseDurationSeconds(rc.Duration)

	sortMessagesByTimestamp(rc.Messages)

	existing, err := e.repo.getChatByUpstreamID(ctx, rc.ChatID)
	if err != nil {
		return outcomeFailed, err
	}

	var pollCompletedAt, pollAbandonedAt *time.Time
	if status == models.StatusCompletedPoll {
		pollCompletedAt = rc.PollCompletedAt
	}
	if status == models.StatusAbandonedPoll {
		pollAbandonedAt = rc.PollAbandonedAt
	}

	next := &models.Chat{
		UpstreamID:      rc.ChatID,
		AgentID:         agentID,
		ContactID:       contactID,
		DepartmentID:    departmentID,
		Provider:        provider,
		Status:          status,
		Alias:           rc.Alias,
		Tags:            rc.Tags,
		CreatedAt:       rc.CreatedAt,
		OpenedAt:        rc.OpenedAt,
		PickedUpAt:      rc.PickedUpAt,
		ResponseAt:      rc.ResponseAt,
		ClosedAt:        rc.ClosedAt,
		DurationSeconds: durationSeconds,
		PollStartedAt:   rc.PollStartedAt,
		PollCompletedAt: pollCompletedAt,
		PollAbandonedAt: pollAbandonedAt,
		PollResponse:    rc.PollResponse,
		UpdatedAt:       now,
	}

	if existing == nil {
		next.Direction = detectDirection(rc.Messages, rc.Tags)
		next.OriginalDirection = next.Direction
		next.SLA = e.calculator.Calculate(chatTimestamps(next), messageTimings(rc.Messages), string(provider), "")

		if err := e.repo.insertChat(ctx, next); err != nil {
			return outcomeFailed, err
		}
		if err := e.insertNewMessages(ctx, next.ID, rc.Messages); err != nil {
			return outcomeFailed, err
		}
		return outcomeCreated, nil
	}

	newMessages, err := e.newMessagesFor(ctx, existing.ID, rc.Messages)
	if err != nil {
		return outcomeFailed, err
	}

	next.ID = existing.ID
	next.OriginalDirection = existing.OriginalDirection
	// Gate the conversion on messages genuinely new to this chat, not on
	// the raw payload's full message set — otherwise reprocessing an
	// unchanged extract of a chat whose first message was outgoing but
	// whose (already-persisted) later messages include a customer reply
	// would flip direction on every rerun (never idempotent).
	next.Direction = nextDirection(existing.Direction, messagesContainIncoming(newMessages))
	next.CreatedAt = existing.CreatedAt

	result := diff.Chats(existing, next)
	if !result.HasChanges {
		if err := e.insertMessages(ctx, newMessages); err != nil {
			return outcomeFailed, err
		}
		return outcomeSkipped, nil
	}

	next.SLA = e.calculator.Calculate(chatTimestamps(next), messageTimings(rc.Messages), string(provider), "")

	if err := e.repo.updateChat(ctx, next); err != nil {
		return outcomeFailed, err
	}
	if result.StatusChanged {
		syncIDCopy, transformIDCopy := syncID, transformID
		hist := &models.ChatStatusHistory{
			ChatID:         next.ID,
			PreviousStatus: result.PreviousStatus,
			NewStatus:      result.NewStatus,
			ChangedAt:      now,
			SyncID:         &syncIDCopy,
			TransformID:    &transformIDCopy,
		}
		if err := e.repo.insertStatusHistory(ctx, hist); err != nil {
			return outcomeFailed, err
		}
	}
	if err := e.insertMessages(ctx, newMessages); err != nil {
		return outcomeFailed, err
	}
	return outcomeUpdated, nil
}

// insertNewMessages computes which of raw's messages are not yet persisted
// for chatID and inserts them. Used on first insert of a chat, where there
// is nothing persisted yet to reuse for the direction-gating check.
func (e *Engine) insertNewMessages(ctx context.Context, chatID string, raw []upstream.RawMessage) error {
	newMessages, err := e.newMessagesFor(ctx, chatID, raw)
	if err != nil {
		return err
	}
	return e.insertMessages(ctx, newMessages)
}

// newMessagesFor returns the subset of raw not already persisted for
// chatID, identified by deterministic message id (see messageid.go). Reused
// both to insert genuinely new messages and to gate the direction
// conversion rule on messages new to this chat, rather than on the raw
// payload's full message set.
func (e *Engine) newMessagesFor(ctx context.Context, chatID string, raw []upstream.RawMessage) ([]models.Message, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	existingIDs, err := e.repo.existingMessageIDs(ctx, chatID)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Message, len(raw))
	for i, m := range raw {
		candidates[i] = models.Message{
			ID:        messageID(chatID, m.Timestamp, i),
			ChatID:    chatID,
			Text:      m.Text,
			Type:      messageType(m),
			Incoming:  m.Incoming,
			Timestamp: m.Timestamp,
			Caption:   m.Caption,
			ImageURL:  m.ImageURL,
			FileURL:   m.FileURL,
		}
	}
	return diff.NewMessages(existingIDs, candidates), nil
}

func (e *Engine) insertMessages(ctx context.Context, messages []models.Message) error {
	for _, m := range messages {
		m := m
		if err := e.repo.insertMessage(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}

func messageType(m upstream.RawMessage) models.MessageType {
	switch strings.ToLower(m.Type) {
	case "image":
		return models.MessageTypeImage
	case "file":
		return models.MessageTypeFile
	default:
		return models.MessageTypeText
	}
}

func messagesContainIncoming(messages []models.Message) bool {
	for _, m := range messages {
		if m.Incoming {
			return true
		}
	}
	return false
}

func chatTimestamps(c *models.Chat) sla.ChatTimestamps {
	return sla.ChatTimestamps{
		OpenedAt:   c.OpenedAt,
		PickedUpAt: c.PickedUpAt,
		ResponseAt: c.ResponseAt,
		ClosedAt:   c.ClosedAt,
	}
}

func messageTimings(messages []upstream.RawMessage) []sla.MessageTiming {
	out := make([]sla.MessageTiming, len(messages))
	for i, m := range messages {
		out[i] = sla.MessageTiming{Incoming: m.Incoming, Timestamp: m.Timestamp}
	}
	return out
}

// normalizeProvider maps an upstream provider string to a canonical
// models.Provider, falling back to livechat when unrecognized (spec
// §4.5.2 step 2).
func normalizeProvider(raw string) models.Provider {
	p := models.Provider(strings.ToLower(strings.TrimSpace(raw)))
	if p.IsValid() {
		return p
	}
	return models.ProviderLiveChat
}

// parseDurationSeconds parses a chat duration field that may arrive either
// as an "H:M:S" or "H:M:S:ms" clock string or as plain numeric seconds
// (spec §4.5.2 step 2).
func parseDurationSeconds(raw *string) *int {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, ":") {
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n := int(f)
			return &n
		}
		return nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return nil
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	total := hours*3600 + minutes*60 + seconds
	return &total
}
