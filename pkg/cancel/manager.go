// Package cancel provides the process-wide cancellation registry shared by
// the Extract and Transform engines (spec §4.7): a syncId maps to a
// cancellable token; engines cooperatively observe it at page and record
// boundaries.
package cancel

import (
	"context"
	"log/slog"
	"sync"
)

// Manager is a registry mapping a run id (an Extract syncId or Transform
// transformId) to its cancel function. Adapted from tarsy's
// WorkerPool session-cancel registry (pkg/queue/pool.go), generalized from a
// single pod's in-progress sessions to one pipeline run at a time.
type Manager struct {
	mu    sync.RWMutex
	runs  map[string]context.CancelFunc
}

// NewManager creates an empty cancellation registry.
func NewManager() *Manager {
	return &Manager{runs: make(map[string]context.CancelFunc)}
}

// Register derives a cancellable context for runID from parent and stores
// its cancel function. Call the returned cleanup func when the run finishes
// (success, failure, or cancellation) to remove the registry entry.
func (m *Manager) Register(parent context.Context, runID string) (ctx context.Context, token *Token, cleanup func()) {
	ctx, cancelFn := context.WithCancel(parent)

	m.mu.Lock()
	m.runs[runID] = cancelFn
	m.mu.Unlock()

	cleanup = func() {
		m.mu.Lock()
		delete(m.runs, runID)
		m.mu.Unlock()
	}

	return ctx, &Token{ctx: ctx}, cleanup
}

// Cancel triggers cancellation of runID's context. Idempotent: cancelling an
// already-cancelled run id again is a no-op and still reports true until its
// cleanup runs; cancelling an unknown (or cleaned-up) run id reports false.
func (m *Manager) Cancel(runID string) bool {
	m.mu.RLock()
	cancelFn, ok := m.runs[runID]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	cancelFn()
	slog.Info("run cancelled", "run_id", runID)
	return true
}

// ActiveRunIDs returns the run ids currently registered, for diagnostics.
func (m *Manager) ActiveRunIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids
}
