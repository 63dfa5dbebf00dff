package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsync/b2csync/pkg/cancel"
	"github.com/chatsync/b2csync/pkg/config"
)

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxInFlight:       4,
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func newToken(t *testing.T) (*cancel.Token, func()) {
	m := cancel.NewManager()
	_, token, cleanup := m.Register(context.Background(), "run-1")
	t.Cleanup(cleanup)
	return token, cleanup
}

func TestQueueDoSucceedsFirstTry(t *testing.T) {
	q := New(testQueueConfig())
	token, _ := newToken(t)

	calls := 0
	err := q.Do(context.Background(), token, "run-1", "test-call", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	snap := q.Telemetry()
	assert.Equal(t, 1, snap.TotalCalls)
	assert.Equal(t, 1, snap.SuccessfulCalls)
	assert.Equal(t, 0, snap.TotalErrors)
	assert.GreaterOrEqual(t, snap.TotalElapsed, time.Duration(0))
}

func TestQueueDoRetriesRetryableError(t *testing.T) {
	q := New(testQueueConfig())
	token, _ := newToken(t)

	calls := 0
	err := q.Do(context.Background(), token, "run-1", "test-call", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestQueueDoSurfacesNonRetryableErrorImmediately(t *testing.T) {
	q := New(testQueueConfig())
	token, _ := newToken(t)

	calls := 0
	permanent := errors.New("bad request")
	err := q.Do(context.Background(), token, "run-1", "test-call", func(ctx context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestQueueDoGivesUpAfterMaxRetries(t *testing.T) {
	q := New(testQueueConfig())
	token, _ := newToken(t)

	calls := 0
	err := q.Do(context.Background(), token, "run-1", "test-call", func(ctx context.Context) error {
		calls++
		return Retryable(errors.New("always fails"))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, q.cfg.MaxRetries, calls)
}

func TestQueueDoHonorsCancellation(t *testing.T) {
	q := New(testQueueConfig())
	m := cancel.NewManager()
	_, token, cleanup := m.Register(context.Background(), "run-1")
	defer cleanup()

	m.Cancel("run-1")

	err := q.Do(context.Background(), token, "run-1", "test-call", func(ctx context.Context) error {
		t.Fatal("call should not run once cancelled")
		return nil
	})

	var cancelled *cancel.CancelledError
	require.ErrorAs(t, err, &cancelled)
}
