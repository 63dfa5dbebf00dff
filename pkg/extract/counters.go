package extract

import (
	"time"

	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/queue"
	"github.com/chatsync/b2csync/pkg/upstream"
)

// Stats accumulates the running counters and summary statistics an Extract
// run reports in its ExtractLog metadata (spec §4.4 step 3: "totals,
// per-field presence, ..., per-provider and per-status histograms,
// date-range seen").
type Stats struct {
	Counters models.RunCounters

	ContactsWithMobile         int
	ContactsWithEmail          int
	ContactsWithIdentification int
	ContactsWithCustomAttrs    int

	ChatsWithAgent      int
	ChatsWithContact    int
	ChatsWithDepartment int
	ChatsWithMessages   int
	TotalMessages       int
	ByProvider          map[string]int
	ByStatus            map[string]int

	EarliestSeen *time.Time
	LatestSeen   *time.Time
	Truncated    bool

	// APICallCount and the response-time figures are populated once, after
	// the run completes, from the delta between a queue.Telemetry snapshot
	// taken before and after the run (see Engine.Run / RecordTelemetry).
	// The queue is a long-lived collaborator shared across runs, so the
	// delta — not the queue's cumulative snapshot — is what scopes the call
	// counts and the average to this one Extract run. MaxResponseTime is
	// not scoped: it is the queue's cumulative maximum as of the end of
	// the run.
	APICallCount    int
	APISuccessCount int
	AvgResponseTime time.Duration
	MaxResponseTime time.Duration
}

// RecordTelemetry folds the queue activity observed during this run (the
// delta between a snapshot taken before the run and one taken after) into
// the stats, for C2's response-time telemetry (spec §4.2, §4.4 step 3) and
// the apiCallCount figure (spec §9 testable property 4).
func (s *Stats) RecordTelemetry(before, after queue.TelemetrySnapshot) {
	s.APICallCount = after.TotalCalls - before.TotalCalls
	s.APISuccessCount = after.SuccessfulCalls - before.SuccessfulCalls
	s.MaxResponseTime = after.MaxResponseTime
	if s.APICallCount > 0 {
		s.AvgResponseTime = (after.TotalElapsed - before.TotalElapsed) / time.Duration(s.APICallCount)
	}
}

// NewStats returns a Stats ready to accumulate observations.
func NewStats() *Stats {
	return &Stats{ByProvider: map[string]int{}, ByStatus: map[string]int{}}
}

// ObserveContact folds one fetched contact into the running counters.
func (s *Stats) ObserveContact(c upstream.RawContact) {
	s.Counters.RecordsFetched++
	if c.Mobile != nil {
		s.ContactsWithMobile++
	}
	if c.Email != nil {
		s.ContactsWithEmail++
	}
	if c.Identification != nil {
		s.ContactsWithIdentification++
	}
	if len(c.CustomAttributes) > 0 {
		s.ContactsWithCustomAttrs++
	}
	s.observeTimestamp(c.UpdatedAt)
	s.observeTimestamp(c.CreatedAt)
}

// ObserveChat folds one fetched chat into the running counters.
func (s *Stats) ObserveChat(c upstream.RawChat) {
	s.Counters.RecordsFetched++
	if c.AgentName != nil {
		s.ChatsWithAgent++
	}
	if c.ContactID != nil || c.ContactName != nil {
		s.ChatsWithContact++
	}
	if c.DepartmentCode != nil {
		s.ChatsWithDepartment++
	}
	if len(c.Messages) > 0 {
		s.ChatsWithMessages++
		s.TotalMessages += len(c.Messages)
	}
	s.ByProvider[c.Provider]++
	s.ByStatus[c.Status]++
	s.observeTimestamp(&c.CreatedAt)
}

func (s *Stats) observeTimestamp(t *time.Time) {
	if t == nil {
		return
	}
	if s.EarliestSeen == nil || t.Before(*s.EarliestSeen) {
		v := *t
		s.EarliestSeen = &v
	}
	if s.LatestSeen == nil || t.After(*s.LatestSeen) {
		v := *t
		s.LatestSeen = &v
	}
}

// Metadata renders the accumulated statistics as the opaque ExtractLog
// summary (spec §4.4 step 4: "summary metadata (quality, performance, and
// date windows)").
func (s *Stats) Metadata() map[string]any {
	quality := map[string]any{}
	if s.Counters.RecordsFetched > 0 {
		quality["contacts"] = map[string]any{
			"withMobile":         s.ContactsWithMobile,
			"withEmail":          s.ContactsWithEmail,
			"withIdentification": s.ContactsWithIdentification,
			"withCustomAttrs":    s.ContactsWithCustomAttrs,
		}
		avgMessages := 0.0
		if s.ChatsWithMessages > 0 {
			avgMessages = float64(s.TotalMessages) / float64(s.ChatsWithMessages)
		}
		quality["chats"] = map[string]any{
			"withAgent":         s.ChatsWithAgent,
			"withContact":       s.ChatsWithContact,
			"withDepartment":    s.ChatsWithDepartment,
			"withMessages":      s.ChatsWithMessages,
			"avgMessagesPerChat": avgMessages,
			"byProvider":        s.ByProvider,
			"byStatus":          s.ByStatus,
		}
	}

	dateWindow := map[string]any{}
	if s.EarliestSeen != nil {
		dateWindow["earliestSeen"] = s.EarliestSeen.Format(time.RFC3339)
	}
	if s.LatestSeen != nil {
		dateWindow["latestSeen"] = s.LatestSeen.Format(time.RFC3339)
	}

	performance := map[string]any{
		"apiCallCount":      s.APICallCount,
		"apiSuccessCount":   s.APISuccessCount,
		"avgResponseTimeMs": s.AvgResponseTime.Milliseconds(),
		"maxResponseTimeMs": s.MaxResponseTime.Milliseconds(),
	}

	return map[string]any{
		"quality":     quality,
		"performance": performance,
		"dateWindow":  dateWindow,
		"truncated":   s.Truncated,
	}
}
