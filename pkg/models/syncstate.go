package models

import "time"

// SyncState is the per-entity-type bookmark used to resume windowed
// extraction without an explicit date range (spec §4.4 step 1).
type SyncState struct {
	EntityType        EntityType
	LastSyncTimestamp *time.Time
	LastSyncedID      *string
	LastSyncOffset    *int
	SyncStatus        RunStatus
	UpdatedAt         time.Time
}

// SyncCheckpoint is the per-run progress snapshot used for observability
// and resumability reporting across both Extract and Transform runs.
type SyncCheckpoint struct {
	RunID             string
	TotalRecords      int
	ProcessedRecords  int
	SuccessfulRecords int
	FailedRecords     int
	Status            RunStatus
	UpdatedAt         time.Time
}
