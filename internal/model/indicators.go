package model

import (
	"strconv"
	"time"
)

// RSIResult is either a value in [0,100] or undefined (insufficient data).
type RSIResult struct {
	Value   float64
	Defined bool
}

// String renders the value with one decimal, or "n/a" when undefined.
func (r RSIResult) String() string {
	if !r.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(r.Value, 'f', 1, 64)
}

// IndicatorReading is the RSI computed for one symbol on one interval.
type IndicatorReading struct {
	Interval  string
	Period    int
	Samples   int
	LastClose float64
	LastTime  time.Time
	RSI       RSIResult
}

// Snapshot holds everything collected for one instrument in one cycle.
type Snapshot struct {
	Source       string
	Symbol       string
	Price        float64
	HasPrice     bool
	Readings     []IndicatorReading
	Quotes       []QuoteRow
	Transactions []Transaction
	Err          string
	FetchedAt    time.Time
}
