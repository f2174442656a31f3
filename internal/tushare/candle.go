package tushare

import (
	"context"
	"log/slog"

	"marketdata/internal/fetcher"
	"marketdata/internal/indicator"
	"marketdata/internal/model"
)

// candleFields is the bar layout requested from the daily/weekly/monthly APIs.
const candleFields = "ts_code,trade_date,open,high,low,close,pre_close,vol,amount"

// CandleAdapter fetches OHLCV bars, applies price adjustment and annotates
// the series with technical indicators.
type CandleAdapter struct {
	client *Client
}

// NewCandleAdapter creates a candle adapter over the shared client.
func NewCandleAdapter(client *Client) *CandleAdapter {
	return &CandleAdapter{client: client}
}

// Name identifies the adapter
func (a *CandleAdapter) Name() string { return "tushare:candle" }

// Fetch retrieves bars for the key's symbol/range/frequency, adjusted per the
// key's adjustment mode. Output bars are strictly ascending by trade date;
// a duplicate date from the provider is rejected as a permanent data fault.
func (a *CandleAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	apiName, err := candleAPI(key.Freq)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"ts_code":    key.Symbol,
		"start_date": model.Compact(key.Range.Start),
		"end_date":   model.Compact(key.Range.End),
	}
	res, err := a.client.Call(ctx, apiName, params, candleFields)
	if err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)
		date, err := model.ParseDate(row.Str("trade_date"))
		if err != nil {
			return nil, fetcher.NewPermanentError("unparseable trade_date: " + row.Str("trade_date"))
		}
		bars = append(bars, model.Bar{
			TradeDate: date,
			Open:      row.Float("open"),
			High:      row.Float("high"),
			Low:       row.Float("low"),
			Close:     row.Float("close"),
			PreClose:  row.Float("pre_close"),
			Volume:    row.Float("vol"),
			Amount:    row.Float("amount"),
		})
	}

	if key.Adjust != model.AdjustNone && len(bars) > 0 {
		if bars, err = a.adjust(ctx, key, bars); err != nil {
			return nil, err
		}
	}

	bars, mergeErr := model.MergeBars(bars)
	if mergeErr != nil {
		return nil, fetcher.NewPermanentError(mergeErr.Error())
	}
	bars = indicator.Annotate(bars)

	slog.Info("fetched candle data",
		"symbol", key.Symbol, "freq", key.Freq, "adjust", key.Adjust, "bars", len(bars))

	return &model.Record{Kind: model.KindCandle, Symbol: key.Symbol, Bars: bars}, nil
}

func candleAPI(freq model.Freq) (string, error) {
	switch freq {
	case model.FreqDaily, "":
		return "daily", nil
	case model.FreqWeekly:
		return "weekly", nil
	case model.FreqMonthly:
		return "monthly", nil
	}
	return "", fetcher.NewInvalidRequestError("unsupported frequency: " + string(freq))
}

// adjust fetches the adjustment-factor series and rescales prices in place.
// Forward adjustment (qfq) anchors the latest bar at its raw price by scaling
// each bar by latestFactor/factor; backward adjustment (hfq) scales by the
// factor itself.
func (a *CandleAdapter) adjust(ctx context.Context, key model.RequestKey, bars []model.Bar) ([]model.Bar, error) {
	params := map[string]string{
		"ts_code":    key.Symbol,
		"start_date": model.Compact(key.Range.Start),
		"end_date":   model.Compact(key.Range.End),
	}
	res, err := a.client.Call(ctx, "adj_factor", params, "ts_code,trade_date,adj_factor")
	if err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return bars, nil
	}

	factors := make(map[string]float64, res.Len())
	var latestDate string
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)
		date := row.Str("trade_date")
		factors[date] = row.Float("adj_factor")
		if date > latestDate {
			latestDate = date
		}
	}
	latest := factors[latestDate]

	for i := range bars {
		factor, ok := factors[model.Compact(bars[i].TradeDate)]
		if !ok || factor == 0 {
			factor = 1.0
		}
		m := factor
		if key.Adjust == model.AdjustForward && latest != 0 {
			m = latest / factor
		}
		bars[i].Open *= m
		bars[i].High *= m
		bars[i].Low *= m
		bars[i].Close *= m
		bars[i].PreClose *= m
		bars[i].Adjusted = true
	}
	return bars, nil
}
