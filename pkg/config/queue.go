package config

import "time"

// QueueConfig controls the rate-limited work queue sitting in front of the
// upstream client (spec §4.2: token-bucket throttling, max concurrent
// in-flight calls, and exponential backoff on timeout/5xx up to a max
// attempts threshold).
type QueueConfig struct {
	// RequestsPerSecond is the steady-state token-bucket rate handed to
	// golang.org/x/time/rate.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the token-bucket burst size.
	Burst int `yaml:"burst"`

	// MaxInFlight bounds concurrent upstream calls issued by one run.
	MaxInFlight int `yaml:"max_in_flight"`

	// MaxRetries is the attempt ceiling before a call surfaces as ApiError.
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff / MaxBackoff bound github.com/cenkalti/backoff/v4's
	// exponential backoff curve between retries.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		MaxInFlight:       4,
		MaxRetries:        5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
	}
}
