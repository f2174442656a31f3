package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

// newTestExecutor returns an executor whose sleeps record their duration
// instead of waiting.
func newTestExecutor(policy Policy) (*Executor, *[]time.Duration) {
	e := New(policy)
	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	e.jitter = func(float64) float64 { return 1 } // deterministic delays
	return e, &slept
}

func TestExecute_TransientThenSuccess(t *testing.T) {
	e, slept := newTestExecutor(Policy{MaxAttempts: 3, BaseDelay: time.Second, BackoffMultiplier: 2})

	want := &model.Record{Kind: model.KindCandle, Symbol: "000001.SZ"}
	calls := 0
	outcome := e.Execute(context.Background(), func(ctx context.Context) (*model.Record, error) {
		calls++
		if calls < 3 {
			return nil, fetcher.NewTransientError("flaky", nil)
		}
		return want, nil
	})

	require.True(t, outcome.OK())
	assert.Equal(t, want, outcome.Record)
	assert.Equal(t, 3, calls, "operation should run exactly maxAttempts times")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept,
		"backoff should double per attempt")
}

func TestExecute_PermanentNeverRetried(t *testing.T) {
	e, slept := newTestExecutor(Policy{MaxAttempts: 5, BaseDelay: time.Second, BackoffMultiplier: 2})

	calls := 0
	outcome := e.Execute(context.Background(), func(ctx context.Context) (*model.Record, error) {
		calls++
		return nil, fetcher.NewPermanentError("invalid symbol")
	})

	require.False(t, outcome.OK())
	assert.Equal(t, 1, calls, "permanent failures must not be retried")
	assert.Empty(t, *slept)
	assert.Equal(t, fetcher.ClassPermanent, outcome.Err.Class)
}

func TestExecute_ExhaustionMarksNonRetryable(t *testing.T) {
	e, _ := newTestExecutor(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffMultiplier: 2})

	calls := 0
	outcome := e.Execute(context.Background(), func(ctx context.Context) (*model.Record, error) {
		calls++
		return nil, fetcher.NewTransientError("still down", nil)
	})

	require.False(t, outcome.OK())
	assert.Equal(t, 3, calls)
	assert.Equal(t, fetcher.ClassTransient, outcome.Err.Class, "class survives exhaustion")
	assert.False(t, outcome.Err.Retryable, "exhaustion must surface as non-retryable")
}

func TestExecute_InvalidRequestShortCircuits(t *testing.T) {
	e, _ := newTestExecutor(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffMultiplier: 2})

	calls := 0
	outcome := e.Execute(context.Background(), func(ctx context.Context) (*model.Record, error) {
		calls++
		return nil, fetcher.NewInvalidRequestError("bad date range")
	})

	require.False(t, outcome.OK())
	assert.Equal(t, 1, calls)
	assert.Equal(t, fetcher.ClassInvalidRequest, outcome.Err.Class)
}

func TestExecute_CanceledDuringBackoff(t *testing.T) {
	e := New(Policy{MaxAttempts: 3, BaseDelay: time.Hour, BackoffMultiplier: 2})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		// Let the first attempt fail, then cancel during the backoff sleep.
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	outcome := e.Execute(ctx, func(ctx context.Context) (*model.Record, error) {
		calls++
		return nil, fetcher.NewTransientError("flaky", nil)
	})

	require.False(t, outcome.OK())
	assert.Equal(t, 1, calls)
	assert.False(t, outcome.Err.Retryable)
}

func TestDelay_JitterBounds(t *testing.T) {
	e := New(Policy{MaxAttempts: 3, BaseDelay: time.Second, BackoffMultiplier: 2, JitterFraction: 0.2})

	for i := 0; i < 200; i++ {
		d := e.delay(2) // base * 2^1 = 2s before jitter
		assert.GreaterOrEqual(t, d, 1600*time.Millisecond)
		assert.LessOrEqual(t, d, 2400*time.Millisecond)
	}
}
