package fetcher

import "marketdata/internal/model"

// Outcome is the terminal result of one data kind's pipeline: either a
// populated record or a classified failure. Failures travel as values, never
// as errors thrown across the manager boundary, so one kind's failure cannot
// crash or block its siblings.
type Outcome struct {
	Record *model.Record
	Err    *FetchError
}

// Success wraps a fetched record.
func Success(rec *model.Record) Outcome { return Outcome{Record: rec} }

// Failure wraps a classified error.
func Failure(err *FetchError) Outcome { return Outcome{Err: err} }

// OK reports whether the outcome carries a record.
func (o Outcome) OK() bool { return o.Err == nil }
