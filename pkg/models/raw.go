package models

import "time"

// ProcessingStatus is the lifecycle of a raw staged row (see spec §3: raw
// rows are write-once-then-mark, mutated only by the Transform Engine).
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingProcessed ProcessingStatus = "processed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// RawRecord is the staging-area representation shared by RawContact and
// RawChat: an opaque upstream payload plus provenance and processing state.
// The concrete entity type is carried alongside (see pkg/staging).
type RawRecord struct {
	ID                 string
	SyncID             string
	UpstreamID         string // not unique across runs; history is preserved
	RawJSON            []byte // opaque upstream document
	APIPage            int
	APIOffset          int
	FetchedAt          time.Time
	ProcessingStatus   ProcessingStatus
	ProcessingAttempt  int
	ProcessingError    *string
	ProcessedAt        *time.Time
}
