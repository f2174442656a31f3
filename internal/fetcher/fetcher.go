package fetcher

import (
	"context"

	"marketdata/internal/model"
)

// Adapter is the core capability every provider implements: translate a
// normalized request key into provider-specific calls and parse the raw
// response into a typed record. Adapters classify their own errors (see
// errors.go) but do not rate-limit or retry; the pipeline around them does.
type Adapter interface {
	// Fetch retrieves the data identified by key. On provider error it
	// returns a *FetchError carrying the error class.
	Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error)

	// Name identifies the adapter for logging.
	// Format: {provider}:{kind}, e.g. tushare:candle
	Name() string
}
