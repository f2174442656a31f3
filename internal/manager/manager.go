// Package manager is the top-level façade over the data layer. A fetch fans
// out one pipeline per requested data kind — cache lookup, request
// coalescing, rate limiting, retried adapter call — and aggregates the
// per-kind outcomes into a composite result. Kinds run concurrently and
// independently: one kind failing never aborts or blocks the others.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"marketdata/internal/cache"
	"marketdata/internal/coalesce"
	"marketdata/internal/fetcher"
	"marketdata/internal/model"
	"marketdata/internal/ratelimit"
	"marketdata/internal/retry"
)

// Request is one composite fetch: a symbol, an inclusive date range and the
// set of data kinds wanted. Freq and Adjust apply to the candle kind only.
type Request struct {
	Symbol string
	Start  string
	End    string
	Kinds  []model.Kind
	Freq   model.Freq
	Adjust model.Adjust
}

// Composite maps every requested kind to its outcome. Every kind the caller
// asked for is present, each either a populated record or an explicit
// failure; nothing is silently omitted.
type Composite map[model.Kind]fetcher.Outcome

type adapterID struct {
	provider model.Provider
	kind     model.Kind
}

// Options configures a Manager.
type Options struct {
	Cache    *cache.Cache
	Limiter  *ratelimit.Limiter
	Retrier  *retry.Executor
	CacheTTL time.Duration
}

// Manager owns the per-kind fetch pipelines.
type Manager struct {
	cache    *cache.Cache
	flights  coalesce.Group
	limiter  *ratelimit.Limiter
	retrier  *retry.Executor
	adapters map[adapterID]fetcher.Adapter
	ttl      time.Duration
}

// New creates a Manager. Register adapters before calling Fetch.
func New(opts Options) *Manager {
	if opts.Cache == nil {
		opts.Cache = cache.New(1000)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(nil)
	}
	if opts.Retrier == nil {
		opts.Retrier = retry.New(retry.DefaultPolicy())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Manager{
		cache:    opts.Cache,
		limiter:  opts.Limiter,
		retrier:  opts.Retrier,
		adapters: make(map[adapterID]fetcher.Adapter),
		ttl:      opts.CacheTTL,
	}
}

// Register installs the adapter serving one (provider, kind) pair.
func (m *Manager) Register(provider model.Provider, kind model.Kind, a fetcher.Adapter) {
	m.adapters[adapterID{provider, kind}] = a
}

// providerFor routes a symbol's market to its provider. This is selection by
// symbol format, not fallback: a provider failing permanently for a kind
// surfaces as that kind's failure.
func providerFor(market model.Market) model.Provider {
	if market == model.MarketUS {
		return model.ProviderAlphaVantage
	}
	return model.ProviderTushare
}

// Fetch runs one pipeline per requested kind and returns the composite
// result. Malformed requests fail every kind with an invalid-request
// outcome; errors are values inside the composite, never panics or returns.
func (m *Manager) Fetch(ctx context.Context, req Request) Composite {
	kinds := dedupKinds(req.Kinds)
	out := make(Composite, len(kinds))
	if len(kinds) == 0 {
		return out
	}

	if ferr := validate(req); ferr != nil {
		for _, kind := range kinds {
			out[kind] = fetcher.Failure(ferr)
		}
		return out
	}
	dateRange, _ := model.NewDateRange(req.Start, req.End)
	market, _ := model.SymbolMarket(req.Symbol)
	provider := providerFor(market)

	type kindResult struct {
		kind    model.Kind
		outcome fetcher.Outcome
	}
	resultChan := make(chan kindResult, len(kinds))

	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind model.Kind) {
			defer wg.Done()
			key := model.NewRequestKey(provider, kind, req.Symbol, dateRange, req.Freq, req.Adjust)
			resultChan <- kindResult{kind: kind, outcome: m.fetchOne(ctx, key)}
		}(kind)
	}
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for res := range resultChan {
		out[res.kind] = res.outcome
	}
	return out
}

// fetchOne runs the full pipeline for a single request key.
func (m *Manager) fetchOne(ctx context.Context, key model.RequestKey) fetcher.Outcome {
	adapter, ok := m.adapters[adapterID{key.Provider, key.Kind}]
	if !ok {
		return fetcher.Failure(fetcher.NewPermanentError(
			"no adapter for " + string(key.Provider) + "/" + string(key.Kind)))
	}

	cacheKey := key.String()
	if rec, ok := m.cache.Get(cacheKey); ok {
		return fetcher.Success(rec)
	}

	return m.flights.Do(ctx, cacheKey, func(flightCtx context.Context) fetcher.Outcome {
		// A flight that resolved between our cache miss and joining may
		// already have populated the cache.
		if rec, ok := m.cache.Get(cacheKey); ok {
			return fetcher.Success(rec)
		}

		if err := m.limiter.Wait(flightCtx, key.Provider); err != nil {
			return fetcher.Failure(fetcher.Classify(err))
		}

		outcome := m.retrier.Execute(flightCtx, func(ctx context.Context) (*model.Record, error) {
			return adapter.Fetch(ctx, key)
		})
		if outcome.OK() {
			outcome.Record.FetchedAt = time.Now()
			m.cache.Put(cacheKey, outcome.Record, m.ttl)
		} else {
			slog.Warn("fetch failed",
				"adapter", adapter.Name(), "key", cacheKey,
				"class", outcome.Err.Class, "error", outcome.Err.Message)
		}
		return outcome
	})
}

// validate rejects malformed requests before any provider work.
func validate(req Request) *fetcher.FetchError {
	if _, err := model.SymbolMarket(req.Symbol); err != nil {
		return fetcher.NewInvalidRequestError(err.Error())
	}
	if _, err := model.NewDateRange(req.Start, req.End); err != nil {
		return fetcher.NewInvalidRequestError(err.Error())
	}
	if req.Freq != "" && !req.Freq.Valid() {
		return fetcher.NewInvalidRequestError("unsupported frequency: " + string(req.Freq))
	}
	if req.Adjust != "" && !req.Adjust.Valid() {
		return fetcher.NewInvalidRequestError("unsupported adjustment: " + string(req.Adjust))
	}
	for _, kind := range req.Kinds {
		if !kind.Valid() {
			return fetcher.NewInvalidRequestError("unknown data kind: " + string(kind))
		}
	}
	return nil
}

func dedupKinds(kinds []model.Kind) []model.Kind {
	seen := make(map[model.Kind]struct{}, len(kinds))
	out := make([]model.Kind, 0, len(kinds))
	for _, k := range kinds {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
