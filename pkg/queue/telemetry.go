package queue

import (
	"sync"
	"time"
)

// Telemetry accumulates per-call counters and response-time statistics for
// operator visibility into queue throughput, error rates, and upstream
// latency (spec §4.2: "per-call telemetry"; §4.4 step 3: "record response
// time").
type Telemetry struct {
	mu           sync.Mutex
	calls        int
	successes    int
	errors       int
	byLabel      map[string]int
	totalElapsed time.Duration
	maxElapsed   time.Duration
}

// NewTelemetry creates an empty telemetry accumulator.
func NewTelemetry() *Telemetry {
	return &Telemetry{byLabel: make(map[string]int)}
}

func (t *Telemetry) record(label string, elapsed time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.byLabel[label]++
	t.totalElapsed += elapsed
	if elapsed > t.maxElapsed {
		t.maxElapsed = elapsed
	}
	if err != nil {
		t.errors++
	} else {
		t.successes++
	}
}

// TelemetrySnapshot is an immutable point-in-time read of queue telemetry.
// TotalElapsed lets a caller compute a precise average over a window
// (e.g. one Extract run) by diffing two snapshots, since the queue itself
// is a long-lived collaborator whose cumulative AvgResponseTime spans every
// caller that has ever shared it.
type TelemetrySnapshot struct {
	TotalCalls      int
	SuccessfulCalls int
	TotalErrors     int
	ByLabel         map[string]int
	TotalElapsed    time.Duration
	AvgResponseTime time.Duration
	MaxResponseTime time.Duration
}

// Snapshot returns a copy of the current counters.
func (t *Telemetry) Snapshot() TelemetrySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	byLabel := make(map[string]int, len(t.byLabel))
	for k, v := range t.byLabel {
		byLabel[k] = v
	}
	var avg time.Duration
	if t.calls > 0 {
		avg = t.totalElapsed / time.Duration(t.calls)
	}
	return TelemetrySnapshot{
		TotalCalls:      t.calls,
		SuccessfulCalls: t.successes,
		TotalErrors:     t.errors,
		ByLabel:         byLabel,
		TotalElapsed:    t.totalElapsed,
		AvgResponseTime: avg,
		MaxResponseTime: t.maxElapsed,
	}
}
