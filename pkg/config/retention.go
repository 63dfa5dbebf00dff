package config

import "time"

// RetentionConfig controls cleanup of processed raw staging rows (see
// pkg/syncstate.PurgeProcessedRawRows — a supplemented feature, raw rows
// would otherwise accumulate indefinitely).
type RetentionConfig struct {
	// RawRowRetentionDays is how many days to keep processed raw_contacts /
	// raw_chats rows before they become eligible for purge.
	RawRowRetentionDays int `yaml:"raw_row_retention_days"`

	// CleanupInterval is how often an operator-scheduled cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RawRowRetentionDays: 90,
		CleanupInterval:     24 * time.Hour,
	}
}
