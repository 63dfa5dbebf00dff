package config

import "time"

// UpstreamConfig holds resolved upstream API connection settings: HTTP
// Basic auth against the token endpoint (spec §4.1: "authenticate() uses
// HTTP Basic with username:password to obtain a bearer token") plus the
// paged export endpoints.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`        // e.g. https://api.upstream.example.com
	TokenURL       string        `yaml:"token_url"`        // token endpoint, called with HTTP Basic auth
	Username       string        `yaml:"username"`         // HTTP Basic username
	PasswordEnv    string        `yaml:"password_env"`     // env var holding the HTTP Basic password (default: "UPSTREAM_PASSWORD")
	RequestTimeout time.Duration `yaml:"request_timeout"`  // per-request timeout; on expiry the queue retries with backoff (spec §4.2)
	PageSize       int           `yaml:"page_size"`        // records requested per page from /contacts/export, /chats/export
}

// ExtractConfig bounds a single Extract run (spec §4.4: "maxPages?").
type ExtractConfig struct {
	MaxPages int `yaml:"max_pages"` // 0 = engine default (unbounded for full syncs, 100 for windowed runs); hitting the cap truncates the run (metadata.truncated=true)
}
