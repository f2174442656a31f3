package coalesce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

func TestDo_CoalescesConcurrentCallers(t *testing.T) {
	var g Group
	var calls atomic.Int64
	release := make(chan struct{})

	rec := &model.Record{Kind: model.KindCandle, Symbol: "000001.SZ"}
	produce := func(ctx context.Context) fetcher.Outcome {
		calls.Add(1)
		<-release
		return fetcher.Success(rec)
	}

	const n = 50
	outcomes := make([]fetcher.Outcome, n)
	var started, done sync.WaitGroup
	for i := 0; i < n; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			outcomes[i] = g.Do(context.Background(), "key", produce)
		}(i)
	}
	started.Wait()
	// Give every caller time to attach to the flight before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int64(1), calls.Load(), "producer must run exactly once")
	for i := 0; i < n; i++ {
		require.True(t, outcomes[i].OK(), "caller %d got failure", i)
		assert.Same(t, rec, outcomes[i].Record, "caller %d got a different record", i)
	}
}

func TestDo_FailureResolvesAndAllowsRetry(t *testing.T) {
	var g Group
	var calls atomic.Int64

	failing := func(ctx context.Context) fetcher.Outcome {
		calls.Add(1)
		return fetcher.Failure(fetcher.NewTransientError("provider down", nil))
	}

	out := g.Do(context.Background(), "key", failing)
	require.False(t, out.OK())

	// The failed flight must have been torn down: a fresh request for the
	// same key runs the producer again.
	out = g.Do(context.Background(), "key", failing)
	require.False(t, out.OK())
	assert.Equal(t, int64(2), calls.Load())
}

func TestDo_CanceledWaiterDetachesWithoutKillingFlight(t *testing.T) {
	var g Group
	var calls atomic.Int64
	release := make(chan struct{})

	rec := &model.Record{Kind: model.KindCandle}
	produce := func(ctx context.Context) fetcher.Outcome {
		calls.Add(1)
		select {
		case <-release:
			return fetcher.Success(rec)
		case <-ctx.Done():
			return fetcher.Failure(fetcher.Classify(ctx.Err()))
		}
	}

	// Initiator with a cancelable context.
	initiatorCtx, cancelInitiator := context.WithCancel(context.Background())
	initiatorOut := make(chan fetcher.Outcome, 1)
	go func() { initiatorOut <- g.Do(initiatorCtx, "key", produce) }()

	// Second waiter attaches to the same flight.
	waiterOut := make(chan fetcher.Outcome, 1)
	go func() { waiterOut <- g.Do(context.Background(), "key", produce) }()

	time.Sleep(50 * time.Millisecond)

	// Canceling the initiator must only detach it; the flight keeps
	// running for the remaining waiter.
	cancelInitiator()
	out := <-initiatorOut
	require.False(t, out.OK())

	close(release)
	out = <-waiterOut
	require.True(t, out.OK(), "surviving waiter should get the flight's success")
	assert.Same(t, rec, out.Record)
	assert.Equal(t, int64(1), calls.Load(), "cancellation must not respawn the producer")
}

func TestDo_DistinctKeysRunIndependently(t *testing.T) {
	var g Group
	var calls atomic.Int64

	produce := func(ctx context.Context) fetcher.Outcome {
		calls.Add(1)
		return fetcher.Success(&model.Record{})
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			g.Do(context.Background(), key, produce)
		}(key)
	}
	wg.Wait()

	assert.Equal(t, int64(3), calls.Load())
}
