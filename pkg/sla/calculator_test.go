package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsync/b2csync/pkg/config"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(config.DefaultSLAConfig(), config.DefaultOfficeHoursConfig())
	require.NoError(t, err)
	return c
}

func tp(t time.Time) *time.Time { return &t }

// S4: openedAt=10:00, pickedUpAt=10:01, responseAt=10:03, closedAt=11:00.
// SLAConfig{pickup=120, firstResponse=300, resolution=7200}.
func TestCalculateSLAComplianceFlags(t *testing.T) {
	slaCfg := &config.SLAConfig{
		Default: config.SLATargets{
			PickupTargetSeconds:        120,
			FirstResponseTargetSeconds: 300,
			AvgResponseTargetSeconds:   600,
			ResolutionTargetSeconds:    7200,
			CompliancePct:              95,
		},
	}
	c, err := NewCalculator(slaCfg, config.DefaultOfficeHoursConfig())
	require.NoError(t, err)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // Monday
	ts := ChatTimestamps{
		OpenedAt:   tp(base),
		PickedUpAt: tp(base.Add(1 * time.Minute)),
		ResponseAt: tp(base.Add(3 * time.Minute)),
		ClosedAt:   tp(base.Add(1 * time.Hour)),
	}

	out := c.Calculate(ts, nil, "whatsapp", "")

	require.NotNil(t, out.TimeToPickupSeconds)
	assert.Equal(t, 60.0, *out.TimeToPickupSeconds)
	require.NotNil(t, out.PickupSLAMet)
	assert.True(t, *out.PickupSLAMet)

	require.NotNil(t, out.FirstResponseSeconds)
	assert.Equal(t, 180.0, *out.FirstResponseSeconds)
	require.NotNil(t, out.FirstResponseSLAMet)
	assert.True(t, *out.FirstResponseSLAMet)

	require.NotNil(t, out.ResolutionSeconds)
	assert.Equal(t, 3600.0, *out.ResolutionSeconds)
	require.NotNil(t, out.ResolutionSLAMet)
	assert.True(t, *out.ResolutionSLAMet)

	require.NotNil(t, out.OverallSLAMet)
	assert.True(t, *out.OverallSLAMet)
}

// S5: chat opened Friday 16:30, closed Monday 10:30, office 09:00-17:00 Mon-Fri.
// Business hours: 30min (Fri) + 1.5h (Mon up to 10:30) = 2h. Wall-clock > 60h.
func TestCalculateResolutionBusinessHoursSkipsWeekend(t *testing.T) {
	c := testCalculator(t)

	friday := time.Date(2026, 3, 6, 16, 30, 0, 0, time.UTC) // Friday
	monday := time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC) // following Monday
	ts := ChatTimestamps{
		OpenedAt: tp(friday),
		ClosedAt: tp(monday),
	}

	out := c.Calculate(ts, nil, "whatsapp", "")

	require.NotNil(t, out.ResolutionSeconds)
	assert.Greater(t, *out.ResolutionSeconds, 60.0*3600)

	require.NotNil(t, out.ResolutionSecondsBH)
	assert.Equal(t, 2*3600.0, *out.ResolutionSecondsBH)
}

func TestCalculateMissingAnchorsAreNull(t *testing.T) {
	c := testCalculator(t)
	out := c.Calculate(ChatTimestamps{}, nil, "whatsapp", "")

	assert.Nil(t, out.TimeToPickupSeconds)
	assert.Nil(t, out.PickupSLAMet)
	assert.Nil(t, out.FirstResponseSeconds)
	assert.Nil(t, out.ResolutionSeconds)
	assert.Nil(t, out.AvgResponseSeconds)
	assert.Nil(t, out.OverallSLAMet)
}

func TestCalculateNegativeIntervalTreatedAsNull(t *testing.T) {
	c := testCalculator(t)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ts := ChatTimestamps{
		OpenedAt:   tp(base),
		PickedUpAt: tp(base.Add(-1 * time.Minute)), // bad data: pickup before open
	}

	out := c.Calculate(ts, nil, "whatsapp", "")
	assert.Nil(t, out.TimeToPickupSeconds)
	assert.Nil(t, out.PickupSLAMet)
}

func TestCalculateAverageResponseOverMultiplePairs(t *testing.T) {
	c := testCalculator(t)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	messages := []MessageTiming{
		{Incoming: true, Timestamp: base},
		{Incoming: false, Timestamp: base.Add(1 * time.Minute)},  // gap 60s
		{Incoming: true, Timestamp: base.Add(5 * time.Minute)},
		{Incoming: false, Timestamp: base.Add(6 * time.Minute)},  // gap 60s
		{Incoming: false, Timestamp: base.Add(7 * time.Minute)},  // second reply to the same customer message; not counted
	}

	out := c.Calculate(ChatTimestamps{}, messages, "whatsapp", "")

	require.NotNil(t, out.AvgResponseSeconds)
	assert.Equal(t, 60.0, *out.AvgResponseSeconds)
}

func TestResolveTargetsAppliesProviderOverride(t *testing.T) {
	cfg := config.DefaultSLAConfig()
	cfg.Overrides = []config.SLAOverride{
		{
			SLAOverrideKey: config.SLAOverrideKey{Provider: "whatsapp"},
			Targets:        config.SLATargets{PickupTargetSeconds: 30, FirstResponseTargetSeconds: 60, AvgResponseTargetSeconds: 120, ResolutionTargetSeconds: 600, CompliancePct: 99},
		},
	}
	targets := ResolveTargets(cfg, "whatsapp", "high")
	assert.Equal(t, 30, targets.PickupTargetSeconds)

	fallback := ResolveTargets(cfg, "sms", "high")
	assert.Equal(t, cfg.Default.PickupTargetSeconds, fallback.PickupTargetSeconds)
}
