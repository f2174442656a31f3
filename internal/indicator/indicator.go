// Package indicator annotates candle series with derived technical
// indicators. Annotation is a pure function of the bar sequence: same input,
// same output, no side effects.
package indicator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"marketdata/internal/model"
)

// Parameters follow the common CN retail-chart defaults.
var (
	maPeriods  = []int{5, 10, 20, 60}
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bollPeriod = 20
	bollStdDev = 2.0
	kdjFastK   = 9
	kdjSlowK   = 3
	kdjSlowD   = 3
)

// Annotate returns a copy of bars with indicator values attached. Values are
// only set once enough history exists for the indicator's warmup window;
// earlier bars simply lack the key.
func Annotate(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	if len(out) == 0 {
		return out
	}

	closes := make([]float64, len(out))
	highs := make([]float64, len(out))
	lows := make([]float64, len(out))
	for i, b := range out {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		out[i].Indicators = make(map[string]float64)
	}

	for _, p := range maPeriods {
		if len(closes) < p {
			continue
		}
		ma := talib.Sma(closes, p)
		setFrom(out, fmt.Sprintf("ma%d", p), ma, p-1)
	}

	if len(closes) > rsiPeriod {
		rsi := talib.Rsi(closes, rsiPeriod)
		setFrom(out, fmt.Sprintf("rsi%d", rsiPeriod), rsi, rsiPeriod)
	}

	if warmup := macdSlow + macdSignal - 2; len(closes) > warmup {
		dif, dea, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		setFrom(out, "macd_dif", dif, warmup)
		setFrom(out, "macd_dea", dea, warmup)
		setFrom(out, "macd_hist", hist, warmup)
	}

	if len(closes) >= bollPeriod {
		upper, mid, lower := talib.BBands(closes, bollPeriod, bollStdDev, bollStdDev, talib.SMA)
		setFrom(out, "boll_upper", upper, bollPeriod-1)
		setFrom(out, "boll_mid", mid, bollPeriod-1)
		setFrom(out, "boll_lower", lower, bollPeriod-1)
	}

	if warmup := kdjFastK + kdjSlowK + kdjSlowD - 3; len(closes) > warmup {
		k, d := talib.Stoch(highs, lows, closes, kdjFastK, kdjSlowK, talib.SMA, kdjSlowD, talib.SMA)
		j := make([]float64, len(k))
		for i := range k {
			j[i] = 3*k[i] - 2*d[i]
		}
		setFrom(out, "kdj_k", k, warmup)
		setFrom(out, "kdj_d", d, warmup)
		setFrom(out, "kdj_j", j, warmup)
	}

	// Day-over-day percent change needs no warmup beyond one prior close.
	for i := 1; i < len(out); i++ {
		if prev := out[i-1].Close; prev != 0 {
			out[i].Indicators["pct_change"] = (out[i].Close - prev) / prev * 100
		}
	}

	return out
}

// setFrom copies series values into the bars' indicator maps starting at the
// first index past the indicator's warmup.
func setFrom(bars []model.Bar, name string, series []float64, from int) {
	for i := from; i < len(bars) && i < len(series); i++ {
		bars[i].Indicators[name] = series[i]
	}
}
