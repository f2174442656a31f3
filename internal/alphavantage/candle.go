// Package alphavantage implements the candle adapter for US-listed symbols
// using the AlphaVantage daily time-series APIs (raw and adjusted).
package alphavantage

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"marketdata/internal/fetcher"
	"marketdata/internal/indicator"
	"marketdata/internal/model"
)

// CandleAdapter fetches daily OHLCV bars from AlphaVantage.
type CandleAdapter struct {
	apiKey string
	client *resty.Client
}

// NewCandleAdapter creates a new AlphaVantage candle adapter.
func NewCandleAdapter(apiKey, baseURL string) *CandleAdapter {
	return &CandleAdapter{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL),
	}
}

// Name identifies the adapter
func (a *CandleAdapter) Name() string { return "alphavantage:candle" }

// Fetch retrieves daily bars for the key's symbol, filtered to its date
// range. AlphaVantage has no server-side range filter, so the full series is
// requested and trimmed locally. Forward adjustment is served by the adjusted
// endpoint, whose adjusted close anchors the latest bar at its raw price;
// backward adjustment cannot be derived from it and is rejected, as is any
// non-daily frequency.
func (a *CandleAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	if key.Freq != "" && key.Freq != model.FreqDaily {
		return nil, fetcher.NewInvalidRequestError("alphavantage supports daily frequency only")
	}
	if key.Adjust == model.AdjustBackward {
		return nil, fetcher.NewInvalidRequestError("alphavantage supports forward adjustment only")
	}
	adjusted := key.Adjust == model.AdjustForward

	function := "TIME_SERIES_DAILY"
	if adjusted {
		function = "TIME_SERIES_DAILY_ADJUSTED"
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":     a.apiKey,
			"function":   function,
			"symbol":     key.Symbol,
			"outputsize": "full",
		}).
		Get("")
	if err != nil {
		return nil, fetcher.Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPStatus(resp.StatusCode())
	}

	root := gjson.Parse(resp.String())
	// AlphaVantage reports errors in-band with a 200 status.
	if msg := root.Get("Error Message"); msg.Exists() {
		return nil, fetcher.NewPermanentError(msg.String())
	}
	if note := root.Get("Note"); note.Exists() {
		return nil, fetcher.NewTransientError("rate limited by alphavantage: "+note.String(), nil)
	}

	series := root.Get("Time Series (Daily)")
	if !series.Exists() {
		return nil, fetcher.NewPermanentError("time series not found in response for " + key.Symbol)
	}

	var bars []model.Bar
	var parseErr error
	series.ForEach(func(date, values gjson.Result) bool {
		day, err := model.ParseDate(date.String())
		if err != nil {
			parseErr = fetcher.NewPermanentError("unparseable trade date: " + date.String())
			return false
		}
		if !key.Range.Contains(day) {
			return true
		}
		bar := model.Bar{
			TradeDate: day,
			Open:      values.Get(`1\. open`).Float(),
			High:      values.Get(`2\. high`).Float(),
			Low:       values.Get(`3\. low`).Float(),
			Close:     values.Get(`4\. close`).Float(),
			Volume:    values.Get(`5\. volume`).Float(),
		}
		if adjusted {
			// The adjusted endpoint shifts volume to field 6 and carries the
			// adjusted close; OHL are raw and scale by adjClose/close.
			adjClose := values.Get(`5\. adjusted close`).Float()
			bar.Volume = values.Get(`6\. volume`).Float()
			if bar.Close != 0 && adjClose != 0 {
				m := adjClose / bar.Close
				bar.Open *= m
				bar.High *= m
				bar.Low *= m
				bar.Close = adjClose
			}
			bar.Adjusted = true
		}
		bars = append(bars, bar)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	bars, mergeErr := model.MergeBars(bars)
	if mergeErr != nil {
		return nil, fetcher.NewPermanentError(mergeErr.Error())
	}
	bars = indicator.Annotate(bars)

	slog.Info("fetched candle data", "symbol", key.Symbol, "provider", "alphavantage", "bars", len(bars))

	return &model.Record{Kind: model.KindCandle, Symbol: key.Symbol, Bars: bars}, nil
}
