package model

import "fmt"

// RequestKey is the normalized identity of one logical data request. It is
// the cache and coalescing key: two requests with the same logical parameters
// always produce an identical key, regardless of which optional fields the
// caller supplied.
type RequestKey struct {
	Provider Provider
	Kind     Kind
	Symbol   string
	Range    DateRange
	// Freq and Adjust only apply to candle requests; NewRequestKey clears
	// them for other kinds so they cannot split the key space.
	Freq   Freq
	Adjust Adjust
}

// NewRequestKey builds a normalized key, filling candle defaults
// (daily frequency, forward adjustment) and dropping variant parameters
// that do not apply to the requested kind.
func NewRequestKey(provider Provider, kind Kind, symbol string, r DateRange, freq Freq, adjust Adjust) RequestKey {
	key := RequestKey{
		Provider: provider,
		Kind:     kind,
		Symbol:   symbol,
		Range:    r,
	}
	if kind == KindCandle {
		if freq == "" {
			freq = FreqDaily
		}
		if adjust == "" {
			adjust = AdjustForward
		}
		key.Freq = freq
		key.Adjust = adjust
	}
	return key
}

// String returns the canonical form used as the cache/coalescing map key.
func (k RequestKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		k.Provider, k.Kind, k.Symbol,
		Compact(k.Range.Start), Compact(k.Range.End),
		k.Freq, k.Adjust)
}
