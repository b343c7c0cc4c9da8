// Package retry provides the single retry policy shared by the oracle
// adapter and the fitness evaluator.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/evoforge/evoforge/pkg/errors"
)

// Policy defines how failed external calls are retried. One Policy value is
// built from the run configuration and injected into every component that
// talks to the oracle or the evaluator.
type Policy struct {
	// MaxAttempts is the total number of attempts, first call included.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier scales the wait between successive retries.
	BackoffMultiplier float64
}

// NewPolicy builds a policy allowing retryCount retries on top of the first
// attempt, with a 500ms doubling backoff.
func NewPolicy(retryCount int) Policy {
	return Policy{
		MaxAttempts:       retryCount + 1,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Do runs op until it succeeds, exhausts the attempt budget, returns a
// non-retryable error, or the context is canceled. Backoff waits honor
// cancellation.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := errors.CheckContext(ctx, "retryable operation"); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		backoff := time.Duration(float64(p.InitialBackoff) *
			math.Pow(p.BackoffMultiplier, float64(attempt)))
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.Canceled, "context canceled during retry backoff")
		case <-time.After(backoff):
		}
	}

	return errors.WithFields(lastErr, errors.Fields{"attempts": attempts})
}
