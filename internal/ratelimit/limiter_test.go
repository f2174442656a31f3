package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketdata/internal/model"
)

func TestAllow_NeverExceedsCapacityWithinWindow(t *testing.T) {
	const capacity = 5
	l := New(map[model.Provider]Budget{
		model.ProviderTushare: {Capacity: capacity, Window: time.Minute},
	})

	// Hammer the limiter from many goroutines within a sliver of the
	// window; no more than capacity permits may be granted.
	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(model.ProviderTushare) {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got > capacity {
		t.Errorf("granted %d permits, want at most %d", got, capacity)
	}
}

func TestWait_BlocksUntilTokenAvailable(t *testing.T) {
	l := New(map[model.Provider]Budget{
		model.ProviderTushare: {Capacity: 1, Window: 100 * time.Millisecond},
	})

	ctx := context.Background()
	if err := l.Wait(ctx, model.ProviderTushare); err != nil {
		t.Fatalf("first Wait() returned unexpected error: %v", err)
	}

	// Bucket drained: the second acquire must wait for the refill.
	start := time.Now()
	if err := l.Wait(ctx, model.ProviderTushare); err != nil {
		t.Fatalf("second Wait() returned unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second Wait() returned after %v, expected a refill delay", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	l := New(map[model.Provider]Budget{
		model.ProviderTushare: {Capacity: 1, Window: time.Hour},
	})

	ctx := context.Background()
	if err := l.Wait(ctx, model.ProviderTushare); err != nil {
		t.Fatalf("first Wait() returned unexpected error: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelCtx, model.ProviderTushare); err == nil {
		t.Error("Wait() expected error for canceled context, got nil")
	}
}

func TestWait_UnknownProviderUnlimited(t *testing.T) {
	l := New(nil)
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background(), "someprovider"); err != nil {
			t.Fatalf("Wait() returned unexpected error for unconfigured provider: %v", err)
		}
	}
}

func TestSetBudget_ReplacesBucket(t *testing.T) {
	l := New(map[model.Provider]Budget{
		model.ProviderTushare: {Capacity: 1, Window: time.Hour},
	})
	if !l.Allow(model.ProviderTushare) {
		t.Fatal("first Allow() should succeed")
	}
	if l.Allow(model.ProviderTushare) {
		t.Fatal("second Allow() should fail on a drained bucket")
	}

	l.SetBudget(model.ProviderTushare, Budget{Capacity: 10, Window: time.Hour})
	if !l.Allow(model.ProviderTushare) {
		t.Error("Allow() should succeed after budget replacement")
	}
}
