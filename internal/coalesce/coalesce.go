// Package coalesce merges concurrent identical requests into a single
// underlying fetch. It is a thin wrapper over x/sync/singleflight that fixes
// two semantics the raw package leaves to the caller: the shared flight runs
// on a context detached from any individual caller, and a canceled caller
// detaches from the flight without canceling it for the other waiters.
package coalesce

import (
	"context"

	"golang.org/x/sync/singleflight"

	"marketdata/internal/fetcher"
)

// Producer performs the actual rate-limited, retried fetch for a key.
type Producer func(ctx context.Context) fetcher.Outcome

// Group coalesces in-flight fetches by request key. The zero value is ready
// to use.
type Group struct {
	sf singleflight.Group
}

// Do returns the outcome for key, executing produce at most once per key
// while any flight for it is in progress. If a flight already exists the
// caller attaches to it and receives the same outcome as the initiator.
// The flight always resolves and is torn down, success or failure, so a
// failed key can be retried by a later request.
func (g *Group) Do(ctx context.Context, key string, produce Producer) fetcher.Outcome {
	// The flight must outlive any single caller: other waiters may still
	// need the result after this caller gives up.
	flightCtx := context.WithoutCancel(ctx)

	ch := g.sf.DoChan(key, func() (interface{}, error) {
		return produce(flightCtx), nil
	})

	select {
	case <-ctx.Done():
		// Detach only this caller; the flight keeps running.
		return fetcher.Failure(fetcher.Classify(ctx.Err()))
	case res := <-ch:
		return res.Val.(fetcher.Outcome)
	}
}
