package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketdata/internal/alphavantage"
	"marketdata/internal/cache"
	"marketdata/internal/config"
	"marketdata/internal/manager"
	"marketdata/internal/model"
	"marketdata/internal/ratelimit"
	"marketdata/internal/retry"
	"marketdata/internal/tushare"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	mgr := buildManager(cfg)

	if len(cfg.Symbols) == 0 {
		log.Fatal("no symbols configured")
	}
	if cfg.StartDate == "" || cfg.EndDate == "" {
		// Default to the last 30 days
		now := time.Now()
		cfg.EndDate = model.Compact(now)
		cfg.StartDate = model.Compact(now.AddDate(0, 0, -30))
	}

	// Add timeout to prevent hanging indefinitely
	fetchCtx, fetchCancel := context.WithTimeout(ctx, 2*time.Minute)
	defer fetchCancel()

	fmt.Println("Fetching market data...")
	fmt.Println("================================================")
	for _, symbol := range cfg.Symbols {
		composite := mgr.Fetch(fetchCtx, manager.Request{
			Symbol: symbol,
			Start:  cfg.StartDate,
			End:    cfg.EndDate,
			Kinds:  model.Kinds,
		})
		for kind, outcome := range composite {
			if outcome.OK() {
				fmt.Printf("%s/%s: %d rows\n", symbol, kind, outcome.Record.Len())
			} else {
				fmt.Printf("%s/%s: ERROR (%s) - %s\n", symbol, kind, outcome.Err.Class, outcome.Err.Message)
			}
		}
	}
	fmt.Println("================================================")
	fmt.Println("All fetches completed!")
}

// buildManager wires the pipeline components and registers one adapter per
// (provider, kind) pair the configuration enables.
func buildManager(cfg *config.Config) *manager.Manager {
	limiter := ratelimit.New(map[model.Provider]ratelimit.Budget{
		model.ProviderTushare:      {Capacity: cfg.TushareRateLimit, Window: time.Minute},
		model.ProviderAlphaVantage: {Capacity: cfg.AlphavantageRateLimit, Window: time.Minute},
	})
	retrier := retry.New(retry.Policy{
		MaxAttempts:       cfg.RetryMaxAttempts,
		BaseDelay:         time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.2,
	})

	mgr := manager.New(manager.Options{
		Cache:    cache.New(cfg.CacheMaxEntries),
		Limiter:  limiter,
		Retrier:  retrier,
		CacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
	})

	ts := tushare.NewClient(cfg.TushareBaseURL, cfg.TushareToken)
	mgr.Register(model.ProviderTushare, model.KindCandle, tushare.NewCandleAdapter(ts))
	mgr.Register(model.ProviderTushare, model.KindFundamentals, tushare.NewFundamentalsAdapter(ts))
	mgr.Register(model.ProviderTushare, model.KindMarketFlow, tushare.NewFlowAdapter(ts))
	mgr.Register(model.ProviderTushare, model.KindNewsSentiment, tushare.NewNewsAdapter(ts, cfg.NewsSource))

	if cfg.AlphavantageEnabled() {
		mgr.Register(model.ProviderAlphaVantage, model.KindCandle,
			alphavantage.NewCandleAdapter(cfg.AlphavantageAPIKey, cfg.AlphavantageBaseURL))
	}
	return mgr
}
