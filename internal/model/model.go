package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Kind identifies one category of market data that can be requested.
type Kind string

const (
	// KindCandle is OHLCV bar data at a configurable frequency
	KindCandle Kind = "candle"
	// KindFundamentals is financial-statement data (income, balance, cashflow)
	KindFundamentals Kind = "fundamentals"
	// KindMarketFlow is money-flow and margin-trading data keyed by trade date
	KindMarketFlow Kind = "market_flow"
	// KindNewsSentiment is news items annotated with a sentiment score
	KindNewsSentiment Kind = "news_sentiment"
)

// Kinds lists every supported data kind.
var Kinds = []Kind{KindCandle, KindFundamentals, KindMarketFlow, KindNewsSentiment}

// Valid reports whether k is a known data kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCandle, KindFundamentals, KindMarketFlow, KindNewsSentiment:
		return true
	}
	return false
}

// Provider identifies an external data source.
type Provider string

const (
	// ProviderTushare serves CN/HK market data
	ProviderTushare Provider = "tushare"
	// ProviderAlphaVantage serves US market candles
	ProviderAlphaVantage Provider = "alphavantage"
)

// Market is the exchange region a symbol belongs to, derived from its format.
type Market string

const (
	MarketCN Market = "cn"
	MarketHK Market = "hk"
	MarketUS Market = "us"
)

// Freq is the candle bar frequency.
type Freq string

const (
	FreqDaily   Freq = "daily"
	FreqWeekly  Freq = "weekly"
	FreqMonthly Freq = "monthly"
)

// Valid reports whether f is a supported frequency.
func (f Freq) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// Adjust is the price-adjustment mode for candle data.
type Adjust string

const (
	// AdjustNone returns raw prices as traded
	AdjustNone Adjust = "none"
	// AdjustForward scales history so the latest bar keeps its raw price (qfq)
	AdjustForward Adjust = "qfq"
	// AdjustBackward scales prices by the cumulative adjustment factor (hfq)
	AdjustBackward Adjust = "hfq"
)

// Valid reports whether a is a supported adjustment mode.
func (a Adjust) Valid() bool {
	switch a {
	case AdjustNone, AdjustForward, AdjustBackward:
		return true
	}
	return false
}

// SymbolMarket validates an exchange-qualified ticker and reports which
// market it belongs to. Accepted formats:
//   - CN: 000001.SZ, 600000.SH, 430001.BJ (6 digits + exchange suffix)
//   - HK: 00001.HK (5 digits)
//   - US: AAPL, TSLA (letters only, at most 5)
func SymbolMarket(symbol string) (Market, error) {
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}

	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		code, suffix := symbol[:i], symbol[i+1:]
		switch suffix {
		case "SH", "SZ", "BJ":
			if len(code) == 6 && allDigits(code) {
				return MarketCN, nil
			}
		case "HK":
			if len(code) == 5 && allDigits(code) {
				return MarketHK, nil
			}
		}
		return "", fmt.Errorf("invalid symbol %q", symbol)
	}

	if len(symbol) <= 5 && allLetters(symbol) {
		return MarketUS, nil
	}
	return "", fmt.Errorf("invalid symbol %q", symbol)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func allLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// dateLayouts are the accepted input formats for dates, tried in order.
var dateLayouts = []string{"20060102", "2006-01-02", "2006/01/02"}

// ParseDate parses a date in YYYYMMDD, YYYY-MM-DD or YYYY/MM/DD form.
// The result is normalized to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", s)
}

// DateRange is an inclusive [Start, End] range of whole days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses and validates a date range from its string form.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the range, comparing by day.
func (r DateRange) Contains(t time.Time) bool {
	day := t.Truncate(24 * time.Hour)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Compact formats a time as YYYYMMDD, the wire format used by tushare.
func Compact(t time.Time) string { return t.Format("20060102") }

// ISO formats a time as YYYY-MM-DD.
func ISO(t time.Time) string { return t.Format("2006-01-02") }
