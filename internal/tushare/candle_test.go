package tushare

import (
	"errors"
	"math"
	"testing"

	"github.com/tidwall/gjson"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

func candleKey(t *testing.T, adjust model.Adjust) model.RequestKey {
	t.Helper()
	r, err := model.NewDateRange("20240101", "20240131")
	if err != nil {
		t.Fatalf("NewDateRange() returned unexpected error: %v", err)
	}
	return model.NewRequestKey(model.ProviderTushare, model.KindCandle, "000001.SZ", r, model.FreqDaily, adjust)
}

func TestCandleFetch_OrdersBarsAscending(t *testing.T) {
	server := newFakeServer(t, map[string]func(gjson.Result) string{
		// The API returns newest-first; the adapter must re-order.
		"daily": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "open", "high", "low", "close", "pre_close", "vol", "amount"},
				[][]any{
					{"000001.SZ", "20240104", 10.2, 10.6, 10.1, 10.4, 10.2, 900.0, 9300.0},
					{"000001.SZ", "20240102", 10.0, 10.5, 9.9, 10.2, 10.0, 1000.0, 10200.0},
					{"000001.SZ", "20240103", 10.1, 10.4, 10.0, 10.2, 10.2, 800.0, 8100.0},
				},
			)
		},
	})
	defer server.Close()

	adapter := NewCandleAdapter(NewClient(server.URL, "test_token"))
	rec, err := adapter.Fetch(t.Context(), candleKey(t, model.AdjustNone))
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}

	if len(rec.Bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(rec.Bars))
	}
	for i := 1; i < len(rec.Bars); i++ {
		if !rec.Bars[i-1].TradeDate.Before(rec.Bars[i].TradeDate) {
			t.Errorf("bars not strictly ascending at index %d", i)
		}
	}
	if rec.Bars[0].Adjusted {
		t.Error("unadjusted request produced adjusted bars")
	}
}

func TestCandleFetch_RejectsDuplicateDates(t *testing.T) {
	server := newFakeServer(t, map[string]func(gjson.Result) string{
		"daily": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "close"},
				[][]any{
					{"000001.SZ", "20240102", 10.2},
					{"000001.SZ", "20240102", 10.3},
				},
			)
		},
	})
	defer server.Close()

	adapter := NewCandleAdapter(NewClient(server.URL, "test_token"))
	_, err := adapter.Fetch(t.Context(), candleKey(t, model.AdjustNone))
	if err == nil {
		t.Fatal("Fetch() expected error for duplicate trade dates, got nil")
	}

	var fe *fetcher.FetchError
	if !errors.As(err, &fe) || fe.Class != fetcher.ClassPermanent {
		t.Errorf("duplicate bars should classify as permanent, got %v", err)
	}
}

func TestCandleFetch_ForwardAdjustment(t *testing.T) {
	server := newFakeServer(t, map[string]func(gjson.Result) string{
		"daily": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "open", "high", "low", "close", "pre_close", "vol", "amount"},
				[][]any{
					{"000001.SZ", "20240102", 10.0, 10.0, 10.0, 10.0, 10.0, 1000.0, 10000.0},
					{"000001.SZ", "20240103", 11.0, 11.0, 11.0, 11.0, 10.0, 1000.0, 11000.0},
				},
			)
		},
		"adj_factor": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "adj_factor"},
				[][]any{
					{"000001.SZ", "20240102", 1.0},
					{"000001.SZ", "20240103", 1.25},
				},
			)
		},
	})
	defer server.Close()

	adapter := NewCandleAdapter(NewClient(server.URL, "test_token"))
	rec, err := adapter.Fetch(t.Context(), candleKey(t, model.AdjustForward))
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}

	// Forward adjustment anchors the latest bar: multiplier is
	// latestFactor/rowFactor, so 20240102 scales by 1.25 and 20240103 by 1.
	if got := rec.Bars[0].Close; math.Abs(got-12.5) > 1e-9 {
		t.Errorf("adjusted close[0] = %v, want 12.5", got)
	}
	if got := rec.Bars[1].Close; math.Abs(got-11.0) > 1e-9 {
		t.Errorf("adjusted close[1] = %v, want 11.0", got)
	}
	for i, b := range rec.Bars {
		if !b.Adjusted {
			t.Errorf("bar %d not marked adjusted", i)
		}
	}
}

func TestCandleFetch_BackwardAdjustment(t *testing.T) {
	server := newFakeServer(t, map[string]func(gjson.Result) string{
		"daily": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "close"},
				[][]any{{"000001.SZ", "20240102", 10.0}},
			)
		},
		"adj_factor": func(gjson.Result) string {
			return tushareResponse(
				[]string{"ts_code", "trade_date", "adj_factor"},
				[][]any{{"000001.SZ", "20240102", 2.0}},
			)
		},
	})
	defer server.Close()

	adapter := NewCandleAdapter(NewClient(server.URL, "test_token"))
	rec, err := adapter.Fetch(t.Context(), candleKey(t, model.AdjustBackward))
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}

	if got := rec.Bars[0].Close; math.Abs(got-20.0) > 1e-9 {
		t.Errorf("hfq close = %v, want 20.0 (raw * factor)", got)
	}
}

func TestCandleFetch_WeeklyUsesWeeklyAPI(t *testing.T) {
	called := false
	server := newFakeServer(t, map[string]func(gjson.Result) string{
		"weekly": func(gjson.Result) string {
			called = true
			return tushareResponse([]string{"ts_code", "trade_date", "close"}, nil)
		},
	})
	defer server.Close()

	r, _ := model.NewDateRange("20240101", "20240331")
	key := model.NewRequestKey(model.ProviderTushare, model.KindCandle, "000001.SZ", r, model.FreqWeekly, model.AdjustNone)

	adapter := NewCandleAdapter(NewClient(server.URL, "test_token"))
	if _, err := adapter.Fetch(t.Context(), key); err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}
	if !called {
		t.Error("weekly frequency did not call the weekly API")
	}
}
