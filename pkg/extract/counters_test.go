package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsync/b2csync/pkg/queue"
)

func TestStatsRecordTelemetryComputesDelta(t *testing.T) {
	s := NewStats()

	before := queue.TelemetrySnapshot{
		TotalCalls:      5,
		SuccessfulCalls: 4,
		TotalElapsed:    500 * time.Millisecond,
		MaxResponseTime: 80 * time.Millisecond,
	}
	after := queue.TelemetrySnapshot{
		TotalCalls:      8,
		SuccessfulCalls: 7,
		TotalElapsed:    800 * time.Millisecond,
		MaxResponseTime: 120 * time.Millisecond,
	}

	s.RecordTelemetry(before, after)

	assert.Equal(t, 3, s.APICallCount)
	assert.Equal(t, 3, s.APISuccessCount)
	assert.Equal(t, 100*time.Millisecond, s.AvgResponseTime)
	assert.Equal(t, 120*time.Millisecond, s.MaxResponseTime)
}

func TestStatsRecordTelemetryNoCallsLeavesAvgZero(t *testing.T) {
	s := NewStats()
	snap := queue.TelemetrySnapshot{TotalCalls: 2, SuccessfulCalls: 2}

	s.RecordTelemetry(snap, snap)

	assert.Equal(t, 0, s.APICallCount)
	assert.Equal(t, time.Duration(0), s.AvgResponseTime)
}

func TestStatsMetadataIncludesPerformanceSection(t *testing.T) {
	s := NewStats()
	s.RecordTelemetry(queue.TelemetrySnapshot{}, queue.TelemetrySnapshot{
		TotalCalls:      2,
		SuccessfulCalls: 2,
		TotalElapsed:    300 * time.Millisecond,
		MaxResponseTime: 200 * time.Millisecond,
	})

	meta := s.Metadata()
	perf, ok := meta["performance"].(map[string]any)
	if !ok {
		t.Fatalf("expected performance section to be a map, got %T", meta["performance"])
	}
	assert.Equal(t, 2, perf["apiCallCount"])
	assert.Equal(t, 2, perf["apiSuccessCount"])
	assert.Equal(t, int64(150), perf["avgResponseTimeMs"])
	assert.Equal(t, int64(200), perf["maxResponseTimeMs"])
}
