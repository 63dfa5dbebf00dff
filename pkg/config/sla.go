package config

import "time"

// parseOfficeHoursLocation validates that timezone is a loadable IANA zone.
func parseOfficeHoursLocation(timezone string) (*time.Location, error) {
	return time.LoadLocation(timezone)
}

// SLATargets are the per-metric targets (seconds) and compliance target
// (percent) used by the SLA Calculator (spec §4.6). An SLAConfig with no
// Overrides degenerates to this single target set applied uniformly —
// the "simpler calculator" named in the spec's open questions is this
// shape's zero-override case, not a second implementation.
type SLATargets struct {
	PickupTargetSeconds        int     `yaml:"pickup_target_seconds"`
	FirstResponseTargetSeconds int     `yaml:"first_response_target_seconds"`
	AvgResponseTargetSeconds   int     `yaml:"avg_response_target_seconds"`
	ResolutionTargetSeconds    int     `yaml:"resolution_target_seconds"`
	CompliancePct              float64 `yaml:"compliance_pct"`
}

// SLAOverrideKey selects which targets apply to a chat: provider alone,
// priority alone, or both together. The more specific match wins — see
// ResolveTargets in pkg/sla/config.go.
type SLAOverrideKey struct {
	Provider string `yaml:"provider,omitempty"` // e.g. "whatsapp"; empty = any
	Priority string `yaml:"priority,omitempty"` // e.g. "vip"; empty = any
}

// SLAOverride pairs a match key with the targets to use for matching chats.
type SLAOverride struct {
	SLAOverrideKey `yaml:",inline"`
	Targets        SLATargets `yaml:"targets"`
}

// SLAConfig is the override-capable SLA configuration (spec §4.6, §9 open
// question: "implementers should choose the override-capable variant").
type SLAConfig struct {
	Default   SLATargets    `yaml:"default"`
	Overrides []SLAOverride `yaml:"overrides,omitempty"`
}

// DefaultSLAConfig returns conservative built-in targets used when no
// b2csync.yaml sla section is supplied.
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		Default: SLATargets{
			PickupTargetSeconds:        120,
			FirstResponseTargetSeconds: 300,
			AvgResponseTargetSeconds:   600,
			ResolutionTargetSeconds:    7200,
			CompliancePct:              95,
		},
	}
}

// Holiday is one calendar entry consumed by the business-hours calendar
// (spec §4.6: "both recurring (month-day) and non-recurring entries are
// supported").
type Holiday struct {
	Name      string `yaml:"name"`
	Month     int    `yaml:"month"` // 1-12
	Day       int    `yaml:"day"`   // 1-31
	Year      int    `yaml:"year,omitempty"` // ignored when Recurring
	Recurring bool   `yaml:"recurring"`
}

// OfficeHoursConfig is the business-hours calendar definition (spec §4.6).
type OfficeHoursConfig struct {
	Start       string    `yaml:"start"` // "HH:MM", local to Timezone
	End         string    `yaml:"end"`   // "HH:MM", local to Timezone
	WorkingDays []int     `yaml:"working_days"` // subset of 1..7 (Monday=1)
	Timezone    string    `yaml:"timezone"`      // IANA zone, e.g. "America/Bogota"
	Holidays    []Holiday `yaml:"holidays,omitempty"`
}

// DefaultOfficeHoursConfig returns a Mon-Fri 09:00-17:00 UTC calendar with no
// holidays, used when no office_hours section is supplied.
func DefaultOfficeHoursConfig() *OfficeHoursConfig {
	return &OfficeHoursConfig{
		Start:       "09:00",
		End:         "17:00",
		WorkingDays: []int{1, 2, 3, 4, 5},
		Timezone:    "UTC",
	}
}
