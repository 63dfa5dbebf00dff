package models

import "time"

// RunStatus is the lifecycle of an Extract or Transform run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// EntityType is the kind of upstream record a run operates on.
type EntityType string

const (
	EntityContacts EntityType = "contacts"
	EntityChats    EntityType = "chats"
	EntityAll      EntityType = "all"
)

// RunCounters are the record-level tallies every Extract/Transform run
// accumulates. Counters are authoritative because a single run processes
// records serially (see spec §5).
type RunCounters struct {
	RecordsFetched   int
	RecordsProcessed int
	RecordsCreated   int
	RecordsUpdated   int
	RecordsSkipped   int
	RecordsFailed    int
}

// ExtractLog is the append-update provenance record for one Extract run.
type ExtractLog struct {
	SyncID       string
	EntityType   EntityType
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	Counters     RunCounters
	ErrorMessage *string
	Metadata     map[string]any // quality/performance/date-window summary, see pkg/extract/counters.go
}

// TransformLog is the append-update provenance record for one Transform run.
type TransformLog struct {
	TransformID   string
	SyncID        *string // set only in legacy single-batch mode
	EntityType    EntityType
	Status        RunStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	Counters      RunCounters
	ErrorMessage  *string
	Metadata      map[string]any
}
