package model

import (
	"fmt"
	"maps"
	"sort"
	"time"
)

// Bar is one OHLCV candle. Prices are adjusted according to the request's
// adjustment mode; Indicators holds derived technical-indicator values
// (ma5, rsi14, macd_dif, ...) computed from the bar series itself.
type Bar struct {
	TradeDate  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	PreClose   float64
	Volume     float64
	Amount     float64
	Adjusted   bool
	Indicators map[string]float64
}

// StatementType distinguishes the financial statements a fundamentals
// record can carry.
type StatementType string

const (
	StatementIncome   StatementType = "income"
	StatementBalance  StatementType = "balance"
	StatementCashflow StatementType = "cashflow"
)

// StatementRow is one reporting period of one statement type. ReportDate is
// the announcement date; restatements of the same period are resolved
// last-write-wins on ReportDate.
type StatementRow struct {
	Type       StatementType
	PeriodEnd  time.Time
	ReportDate time.Time
	Items      map[string]float64
}

// FlowRow is one date of market-microstructure figures: per-day money-flow
// and margin-trading balances keyed by trade date, plus ownership figures
// (shareholder count, top-10 holder concentration) keyed by their reporting
// period end.
type FlowRow struct {
	TradeDate      time.Time
	BuyLarge       float64
	SellLarge      float64
	BuySmall       float64
	SellSmall      float64
	NetAmount      float64
	MarginBalance  float64
	ShortBalance   float64
	HolderCount    float64
	Top10HoldRatio float64
}

// NewsItem is one news article with its derived sentiment annotation.
// Items with empty text are kept, scored neutral and flagged low-confidence.
type NewsItem struct {
	PublishedAt   time.Time
	Title         string
	Content       string
	Source        string
	Sentiment     float64
	Confidence    float64
	LowConfidence bool
}

// Record is the typed payload for one data kind. Exactly one of the row
// slices is populated, selected by Kind; rows are ordered by timestamp
// ascending.
type Record struct {
	Kind      Kind
	Symbol    string
	FetchedAt time.Time

	Bars       []Bar
	Statements []StatementRow
	Flows      []FlowRow
	News       []NewsItem
}

// Len returns the number of rows in the record.
func (r *Record) Len() int {
	switch r.Kind {
	case KindCandle:
		return len(r.Bars)
	case KindFundamentals:
		return len(r.Statements)
	case KindMarketFlow:
		return len(r.Flows)
	case KindNewsSentiment:
		return len(r.News)
	}
	return 0
}

// Clone returns a deep copy. The cache hands out clones so callers can never
// mutate a cached record in place.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Kind: r.Kind, Symbol: r.Symbol, FetchedAt: r.FetchedAt}
	if r.Bars != nil {
		out.Bars = make([]Bar, len(r.Bars))
		for i, b := range r.Bars {
			b.Indicators = maps.Clone(b.Indicators)
			out.Bars[i] = b
		}
	}
	if r.Statements != nil {
		out.Statements = make([]StatementRow, len(r.Statements))
		for i, s := range r.Statements {
			s.Items = maps.Clone(s.Items)
			out.Statements[i] = s
		}
	}
	if r.Flows != nil {
		out.Flows = append([]FlowRow(nil), r.Flows...)
	}
	if r.News != nil {
		out.News = append([]NewsItem(nil), r.News...)
	}
	return out
}

// MergeBars sorts bars ascending by trade date and rejects duplicate
// timestamps: a provider returning the same bar twice is a data fault,
// not something to silently collapse.
func MergeBars(bars []Bar) ([]Bar, error) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].TradeDate.Before(bars[j].TradeDate)
	})
	for i := 1; i < len(bars); i++ {
		if bars[i].TradeDate.Equal(bars[i-1].TradeDate) {
			return nil, fmt.Errorf("duplicate bar for %s", ISO(bars[i].TradeDate))
		}
	}
	return bars, nil
}

// MergeStatements resolves restated periods last-write-wins by report date
// and returns rows ordered by period end, then statement type.
func MergeStatements(rows []StatementRow) []StatementRow {
	type periodKey struct {
		typ    StatementType
		period time.Time
	}
	latest := make(map[periodKey]StatementRow, len(rows))
	for _, row := range rows {
		k := periodKey{row.Type, row.PeriodEnd}
		if cur, ok := latest[k]; !ok || !row.ReportDate.Before(cur.ReportDate) {
			latest[k] = row
		}
	}
	out := make([]StatementRow, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd) {
			return out[i].PeriodEnd.Before(out[j].PeriodEnd)
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// MergeFlows deduplicates rows by trade date (last one wins) and returns
// them ordered by date ascending.
func MergeFlows(rows []FlowRow) []FlowRow {
	byDate := make(map[time.Time]FlowRow, len(rows))
	for _, row := range rows {
		byDate[row.TradeDate] = row
	}
	out := make([]FlowRow, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out
}

// SortNews orders items by publication time ascending.
func SortNews(items []NewsItem) []NewsItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})
	return items
}
