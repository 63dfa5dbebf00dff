// Package queue throttles and retries calls to the upstream client (spec
// §4.2): a token-bucket rate limiter bounds steady-state throughput, a
// semaphore bounds concurrent in-flight calls, and exponential backoff
// absorbs transient upstream failures up to a max-attempts ceiling.
//
// The shutdown/cancellation shape (stop channel + WaitGroup, cooperative
// cancellation token checked before starting new work) is adapted from
// tarsy's queue.WorkerPool/Worker (pkg/queue/pool.go, pkg/queue/worker.go),
// generalized from polling a DB-backed session queue to throttling
// synchronous upstream HTTP calls.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatsync/b2csync/pkg/cancel"
	"github.com/chatsync/b2csync/pkg/config"
)

// ErrMaxRetriesExceeded is wrapped into the final error when a call never
// succeeds within cfg.MaxRetries attempts.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Call is one throttled, retryable unit of work — typically one upstream
// HTTP request. A Call returning a *RetryableError is retried with backoff;
// any other error is surfaced immediately.
type Call func(ctx context.Context) error

// Queue wraps a rate limiter, an in-flight semaphore, and a backoff policy
// around arbitrary Calls.
type Queue struct {
	limiter  *rate.Limiter
	inFlight chan struct{}
	cfg      *config.QueueConfig
	telem    *Telemetry
}

// New builds a Queue from the resolved queue configuration.
func New(cfg *config.QueueConfig) *Queue {
	return &Queue{
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		inFlight: make(chan struct{}, cfg.MaxInFlight),
		cfg:      cfg,
		telem:    NewTelemetry(),
	}
}

// Telemetry exposes cumulative call counters for operator visibility.
func (q *Queue) Telemetry() TelemetrySnapshot {
	return q.telem.Snapshot()
}

// Do runs call through the limiter, semaphore, and backoff policy. It
// respects both ctx and the cooperative cancellation token: either being
// done aborts waiting for an in-flight slot or a retry sleep. Waiting for a
// rate-limit slot watches ctx only.
func (q *Queue) Do(ctx context.Context, token *cancel.Token, runID, label string, call Call) error {
	if err := token.Check(runID); err != nil {
		return err
	}

	if err := q.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", label, err)
	}

	select {
	case q.inFlight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Check(runID)
	}
	defer func() { <-q.inFlight }()

	start := time.Now()
	err := q.doWithBackoff(ctx, token, runID, label, call)
	q.telem.record(label, time.Since(start), err)
	return err
}

func (q *Queue) doWithBackoff(ctx context.Context, token *cancel.Token, runID, label string, call Call) error {
	b := newBackoff(q.cfg)

	var lastErr error
	for attempt := 1; attempt <= q.cfg.MaxRetries; attempt++ {
		if err := token.Check(runID); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var retryable *RetryableError
		if !errors.As(err, &retryable) {
			return err
		}

		wait := b.NextBackOff()
		slog.Warn("upstream call failed, retrying",
			"label", label, "attempt", attempt, "max_retries", q.cfg.MaxRetries,
			"backoff", wait, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-token.Done():
			return token.Check(runID)
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%s: %w: %w", label, ErrMaxRetriesExceeded, lastErr)
}
