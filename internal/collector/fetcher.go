package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"MarketPulse/internal/model"
)

// Data sources shown on snapshots.
const (
	SourceBinance  = "binance"
	SourceSantiago = "santiago"
)

var (
	ErrMalformed      = errors.New("malformed market data")
	ErrRateLimited    = errors.New("api rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrUnavailable    = errors.New("market data api unavailable")
)

// HistoryProvider returns closing prices for a symbol on an interval, oldest first.
type HistoryProvider interface {
	FetchSeries(ctx context.Context, symbol, interval string, limit int) (model.PriceSeries, error)
	Name() string
}

// PriceProvider returns the latest traded price for a symbol.
type PriceProvider interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// StockProvider returns best bid/ask rows and recent trades for a listed stock.
type StockProvider interface {
	FetchQuotes(ctx context.Context, stock string) ([]model.QuoteRow, error)
	FetchTransactions(ctx context.Context, stock string) ([]model.Transaction, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// parseNumber converts an exchange-provided decimal string into a float.
func parseNumber(field, raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformed, field, raw)
	}
	f, _ := d.Float64()
	return f, nil
}
