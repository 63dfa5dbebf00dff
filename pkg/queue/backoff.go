package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chatsync/b2csync/pkg/config"
)

// RetryableError marks an upstream failure (timeout, 429, 5xx) as eligible
// for backoff-and-retry, as opposed to a permanent failure (4xx other than
// 429, schema error) that should surface immediately (spec §4.1: ApiError
// carries a status code; only transient ones are retried).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// newBackoff builds a cenkalti/backoff exponential policy bounded by the
// queue config's initial/max backoff, uncapped on elapsed time — the
// MaxRetries attempt ceiling in Queue.doWithBackoff is what stops retrying.
func newBackoff(cfg *config.QueueConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.MaxElapsedTime = 0 // no overall deadline; MaxRetries bounds attempts
	b.Reset()
	return &capped{BackOff: b, max: cfg.MaxBackoff}
}

// capped guards against a NextBackOff() that returns backoff.Stop by
// clamping to max instead, since Queue.doWithBackoff owns the attempt
// ceiling and should never see a policy asking it to give up early.
type capped struct {
	backoff.BackOff
	max time.Duration
}

func (c *capped) NextBackOff() time.Duration {
	d := c.BackOff.NextBackOff()
	if d == backoff.Stop || d > c.max {
		return c.max
	}
	return d
}
