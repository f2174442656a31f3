// Package retry wraps a single adapter call with a bounded retry/backoff
// policy. Adapters classify their failures; this package only acts on the
// classification, so retry behavior is uniform across providers and testable
// in isolation.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

// Policy configures the retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the sleep before the second attempt.
	BaseDelay time.Duration
	// BackoffMultiplier scales the delay for each further attempt.
	BackoffMultiplier float64
	// JitterFraction j randomizes each delay by a factor in [1-j, 1+j].
	JitterFraction float64
}

// DefaultPolicy mirrors the request defaults: 3 attempts, 1s base delay,
// exponential doubling, 20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.2,
	}
}

// Operation is one attempt of the underlying adapter call.
type Operation func(ctx context.Context) (*model.Record, error)

// Executor runs operations under a Policy.
type Executor struct {
	policy Policy
	// sleep is swappable so tests can observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a multiplier in [1-j, 1+j].
	jitter func(fraction float64) float64
}

// New creates an Executor with the given policy.
func New(policy Policy) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffMultiplier <= 0 {
		policy.BackoffMultiplier = 1
	}
	return &Executor{
		policy: policy,
		sleep:  sleepCtx,
		jitter: randomJitter,
	}
}

// Execute runs op until it succeeds, fails permanently, or attempts are
// exhausted. Exhaustion returns the last failure marked non-retryable so
// callers can tell the pipeline is done with this request.
func (e *Executor) Execute(ctx context.Context, op Operation) fetcher.Outcome {
	var last *fetcher.FetchError

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		rec, err := op(ctx)
		if err == nil {
			return fetcher.Success(rec)
		}

		last = fetcher.Classify(err)
		if !last.Retryable {
			return fetcher.Failure(last)
		}
		if attempt == e.policy.MaxAttempts {
			break
		}

		if err := e.sleep(ctx, e.delay(attempt)); err != nil {
			return fetcher.Failure(fetcher.Classify(err))
		}
	}

	// Attempts exhausted: surface the last transient failure as final.
	exhausted := *last
	exhausted.Retryable = false
	return fetcher.Failure(&exhausted)
}

// delay computes baseDelay * multiplier^(attempt-1), scaled by jitter.
func (e *Executor) delay(attempt int) time.Duration {
	backoff := float64(e.policy.BaseDelay) * math.Pow(e.policy.BackoffMultiplier, float64(attempt-1))
	return time.Duration(backoff * e.jitter(e.policy.JitterFraction))
}

func randomJitter(fraction float64) float64 {
	if fraction <= 0 {
		return 1
	}
	return 1 - fraction + 2*fraction*rand.Float64()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
