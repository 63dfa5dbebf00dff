package config

import "dario.cat/mergo"

// mergeQueueConfig overlays a user-supplied queue section onto the built-in
// defaults, preserving any field the user left at its zero value.
func mergeQueueConfig(user *QueueConfig) (*QueueConfig, error) {
	cfg := DefaultQueueConfig()
	if user == nil {
		return cfg, nil
	}
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeRetentionConfig overlays a user-supplied retention section onto the
// built-in defaults.
func mergeRetentionConfig(user *RetentionConfig) (*RetentionConfig, error) {
	cfg := DefaultRetentionConfig()
	if user == nil {
		return cfg, nil
	}
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeUpstreamConfig overlays a user-supplied upstream section onto the
// built-in defaults (password env name, timeout, page size).
func mergeUpstreamConfig(user *UpstreamConfig) (*UpstreamConfig, error) {
	cfg := DefaultUpstreamConfig()
	if user == nil {
		return cfg, nil
	}
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeExtractConfig overlays a user-supplied extract section onto the
// built-in defaults.
func mergeExtractConfig(user *ExtractConfig) (*ExtractConfig, error) {
	cfg := DefaultExtractConfig()
	if user == nil {
		return cfg, nil
	}
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeOfficeHoursConfig overlays a user-supplied office_hours section onto
// the built-in Mon-Fri 09:00-17:00 UTC default. Holidays are replaced
// wholesale rather than merged — a partial holiday list merged field-by-field
// would silently keep the default calendar's entries alongside the user's.
func mergeOfficeHoursConfig(user *OfficeHoursConfig) (*OfficeHoursConfig, error) {
	cfg := DefaultOfficeHoursConfig()
	if user == nil {
		return cfg, nil
	}
	holidays := user.Holidays
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	cfg.Holidays = holidays
	return cfg, nil
}

// mergeSLAConfig overlays a user-supplied sla section onto the built-in
// default targets. Overrides are replaced wholesale, same rationale as
// holidays above.
func mergeSLAConfig(user *SLAConfig) (*SLAConfig, error) {
	cfg := DefaultSLAConfig()
	if user == nil {
		return cfg, nil
	}
	overrides := user.Overrides
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	cfg.Overrides = overrides
	return cfg, nil
}
