package config

import "time"

// Built-in defaults applied when a b2csync.yaml section is omitted.
const (
	DefaultPageSize       = 100
	DefaultMaxPages       = 0 // engine default: unbounded for full syncs, 100 for windowed runs
	DefaultRequestTimeout = 30 * time.Second
)

// DefaultUpstreamConfig returns the built-in upstream defaults; callers
// still must supply BaseURL/TokenURL/Username — there is no sane default
// for those.
func DefaultUpstreamConfig() *UpstreamConfig {
	return &UpstreamConfig{
		PasswordEnv:    "UPSTREAM_PASSWORD",
		RequestTimeout: DefaultRequestTimeout,
		PageSize:       DefaultPageSize,
	}
}

// DefaultExtractConfig returns the built-in Extract run bounds.
func DefaultExtractConfig() *ExtractConfig {
	return &ExtractConfig{MaxPages: DefaultMaxPages}
}
