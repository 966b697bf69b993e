package model

import "time"

// PriceSample is a single closing price parsed from one exchange record.
type PriceSample struct {
	Time  time.Time
	Close float64
}

// PriceSeries is a chronologically ascending sequence of samples.
type PriceSeries []PriceSample

// Closes returns the closing prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent sample and false when the series is empty.
func (s PriceSeries) Last() (PriceSample, bool) {
	if len(s) == 0 {
		return PriceSample{}, false
	}
	return s[len(s)-1], true
}

// Transaction is one row of the Santiago last-transactions feed.
type Transaction struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"qty"`
	Time     string  `json:"time"`
}

// QuoteRow is one "puntas" row of the Santiago price summary.
// Field names are defined by the exchange and passed through untouched.
type QuoteRow map[string]any
