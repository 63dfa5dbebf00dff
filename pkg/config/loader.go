package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// b2csyncYAMLConfig mirrors the top-level shape of b2csync.yaml.
type b2csyncYAMLConfig struct {
	Upstream    *UpstreamConfig    `yaml:"upstream"`
	Extract     *ExtractConfig     `yaml:"extract"`
	Queue       *QueueConfig       `yaml:"queue"`
	SLA         *SLAConfig         `yaml:"sla"`
	OfficeHours *OfficeHoursConfig `yaml:"office_hours"`
	Retention   *RetentionConfig   `yaml:"retention"`
}

// Initialize loads, merges, and validates b2csync.yaml.
//
// Steps performed:
//  1. Read b2csync.yaml from configDir
//  2. Expand environment variables ($VAR / ${VAR})
//  3. Parse YAML into the section structs
//  4. Merge each section over its built-in defaults (dario.cat/mergo)
//  5. Validate the merged configuration
//  6. Return a Config ready for use
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading pipeline configuration")

	raw, err := loadYAML(configDir)
	if err != nil {
		return nil, NewLoadError("b2csync.yaml", err)
	}

	upstream, err := mergeUpstreamConfig(raw.Upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to merge upstream config: %w", err)
	}
	extract, err := mergeExtractConfig(raw.Extract)
	if err != nil {
		return nil, fmt.Errorf("failed to merge extract config: %w", err)
	}
	queue, err := mergeQueueConfig(raw.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to merge queue config: %w", err)
	}
	sla, err := mergeSLAConfig(raw.SLA)
	if err != nil {
		return nil, fmt.Errorf("failed to merge sla config: %w", err)
	}
	officeHours, err := mergeOfficeHoursConfig(raw.OfficeHours)
	if err != nil {
		return nil, fmt.Errorf("failed to merge office_hours config: %w", err)
	}
	retention, err := mergeRetentionConfig(raw.Retention)
	if err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}

	cfg := &Config{
		configDir:   configDir,
		Upstream:    upstream,
		Extract:     extract,
		Queue:       queue,
		SLA:         sla,
		OfficeHours: officeHours,
		Retention:   retention,
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration loaded",
		"upstream_base_url", cfg.Upstream.BaseURL,
		"page_size", cfg.Upstream.PageSize,
		"office_hours_timezone", cfg.OfficeHours.Timezone,
		"sla_overrides", len(cfg.SLA.Overrides))

	return cfg, nil
}

func loadYAML(configDir string) (*b2csyncYAMLConfig, error) {
	path := filepath.Join(configDir, "b2csync.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	// Expand environment variables before parsing, allowing e.g.
	// upstream.username: ${UPSTREAM_USERNAME} in the YAML.
	data = ExpandEnv(data)

	var cfg b2csyncYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// validate performs cross-field validation on the fully merged configuration.
func validate(cfg *Config) error {
	if cfg.Upstream.BaseURL == "" {
		return NewValidationError("upstream", "base_url", ErrMissingRequiredField)
	}
	if cfg.Upstream.TokenURL == "" {
		return NewValidationError("upstream", "token_url", ErrMissingRequiredField)
	}
	if cfg.Upstream.Username == "" {
		return NewValidationError("upstream", "username", ErrMissingRequiredField)
	}
	if os.Getenv(cfg.Upstream.PasswordEnv) == "" {
		return NewValidationError("upstream", "password_env",
			fmt.Errorf("%w: env var %q is not set", ErrInvalidValue, cfg.Upstream.PasswordEnv))
	}
	if cfg.Upstream.PageSize < 1 {
		return NewValidationError("upstream", "page_size", ErrInvalidValue)
	}

	if cfg.Queue.RequestsPerSecond <= 0 {
		return NewValidationError("queue", "requests_per_second", ErrInvalidValue)
	}
	if cfg.Queue.MaxInFlight < 1 {
		return NewValidationError("queue", "max_in_flight", ErrInvalidValue)
	}

	if _, err := parseOfficeHoursLocation(cfg.OfficeHours.Timezone); err != nil {
		return NewValidationError("office_hours", "timezone", err)
	}
	for _, d := range cfg.OfficeHours.WorkingDays {
		if d < 1 || d > 7 {
			return NewValidationError("office_hours", "working_days",
				fmt.Errorf("%w: %d is not in 1..7", ErrInvalidValue, d))
		}
	}

	return nil
}
