package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Thresholds classify RSI values into zones.
type Thresholds struct {
	Overbought float64
	Oversold   float64
}

// IndicatorLine is one display-ready RSI reading.
type IndicatorLine struct {
	Interval  string `json:"interval"`
	Period    int    `json:"period"`
	RSI       string `json:"rsi"`
	Zone      string `json:"zone"`
	LastClose string `json:"last_close"`
	Samples   int    `json:"samples"`
}

// Record is the display-ready form of a snapshot.
type Record struct {
	Source       string              `json:"source"`
	Symbol       string              `json:"symbol"`
	Price        string              `json:"price"`
	Indicators   []IndicatorLine     `json:"indicators,omitempty"`
	Quotes       []model.QuoteRow    `json:"quotes,omitempty"`
	Transactions []model.Transaction `json:"transactions,omitempty"`
	Error        string              `json:"error,omitempty"`
	UpdatedAt    string              `json:"updated_at"`
}

// Format turns collected snapshots into display records. It has no side effects.
func Format(snaps []model.Snapshot, th Thresholds) []Record {
	records := make([]Record, 0, len(snaps))
	for _, s := range snaps {
		rec := Record{
			Source:       s.Source,
			Symbol:       s.Symbol,
			Price:        "-",
			Quotes:       s.Quotes,
			Transactions: s.Transactions,
			Error:        s.Err,
			UpdatedAt:    s.FetchedAt.Format(timeLayout),
		}
		if s.HasPrice {
			rec.Price = formatNumber(s.Price)
		}
		for _, r := range s.Readings {
			line := IndicatorLine{
				Interval:  r.Interval,
				Period:    r.Period,
				RSI:       r.RSI.String(),
				Zone:      calculator.Classify(r.RSI, th.Overbought, th.Oversold),
				LastClose: "-",
				Samples:   r.Samples,
			}
			if r.Samples > 0 {
				line.LastClose = formatNumber(r.LastClose)
			}
			rec.Indicators = append(rec.Indicators, line)
		}
		records = append(records, rec)
	}
	return records
}

// Text lays records out for a terminal.
func Text(records []Record) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("=== MarketPulse | %d instruments ===\n", len(records)))

	for _, r := range records {
		b.WriteString(fmt.Sprintf("\n[%s] %s  price %s  (%s)\n", r.Source, r.Symbol, r.Price, r.UpdatedAt))
		for _, ind := range r.Indicators {
			b.WriteString(fmt.Sprintf("  %-4s RSI(%d) %6s  %-10s last %s (%d samples)\n",
				ind.Interval, ind.Period, ind.RSI, ind.Zone, ind.LastClose, ind.Samples))
		}
		if len(r.Quotes) > 0 {
			b.WriteString("  Quotes:\n")
			b.WriteString(indentJSON(r.Quotes, "  "))
			b.WriteString("\n")
		}
		if len(r.Transactions) > 0 {
			b.WriteString("  Transactions:\n")
			b.WriteString(indentJSON(r.Transactions, "  "))
			b.WriteString("\n")
		}
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("  error: %s\n", r.Error))
		}
	}
	return b.String()
}

func formatNumber(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func indentJSON(v any, prefix string) string {
	data, err := json.MarshalIndent(v, prefix, "  ")
	if err != nil {
		return prefix + err.Error()
	}
	return prefix + string(data)
}
