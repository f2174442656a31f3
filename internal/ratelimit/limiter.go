package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"marketdata/internal/model"
)

// Budget is one provider's request budget: Capacity requests per Window.
// Tokens refill continuously at Capacity/Window (token bucket), not at
// window boundaries, so a drained budget recovers smoothly instead of in
// a thundering-herd spike.
type Budget struct {
	Capacity int
	Window   time.Duration
}

// Limiter enforces per-provider request budgets. It owns all rate state for
// the process; adapters never touch the underlying buckets directly.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[model.Provider]*rate.Limiter
}

// New creates a Limiter from the configured budget table.
func New(budgets map[model.Provider]Budget) *Limiter {
	l := &Limiter{limiters: make(map[model.Provider]*rate.Limiter, len(budgets))}
	for provider, b := range budgets {
		l.limiters[provider] = newBucket(b)
	}
	return l
}

func newBucket(b Budget) *rate.Limiter {
	if b.Capacity <= 0 || b.Window <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	perSecond := float64(b.Capacity) / b.Window.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), b.Capacity)
}

// SetBudget installs or replaces a provider's budget.
func (l *Limiter) SetBudget(provider model.Provider, b Budget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[provider] = newBucket(b)
}

// Wait blocks until the provider's budget permits one request, then consumes
// a token. Acquisition itself never fails, only delays; the returned error is
// non-nil only when ctx is canceled while waiting. Providers without a
// configured budget are not limited.
func (l *Limiter) Wait(ctx context.Context, provider model.Provider) error {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return nil
	}
	return limiter.Wait(ctx)
}

// Allow reports whether a request for the given provider may happen now,
// consuming a token if so.
func (l *Limiter) Allow(provider model.Provider) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return true
	}
	return limiter.Allow()
}
