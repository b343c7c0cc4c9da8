package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/pkg/errors"
)

func fastPolicy(retryCount int) Policy {
	p := NewPolicy(retryCount)
	p.InitialBackoff = time.Millisecond
	return p
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New(errors.OracleTimeout, "slow")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New(errors.OracleRateLimited, "throttled")
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, errors.OracleRateLimited, errors.Code(err))
	assert.Contains(t, err.Error(), "attempts=3")
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New(errors.InvalidConfiguration, "bad setup")
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastPolicy(5).Do(ctx, func(context.Context) error {
		calls++
		return errors.New(errors.OracleTimeout, "slow")
	})
	assert.Equal(t, 0, calls)
	assert.Equal(t, errors.Canceled, errors.Code(err))
}

func TestDoCancellationDuringBackoff(t *testing.T) {
	p := NewPolicy(1)
	p.InitialBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context) error {
			return errors.New(errors.OracleTransport, "flaky")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, errors.Canceled, errors.Code(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation during backoff")
	}
}
