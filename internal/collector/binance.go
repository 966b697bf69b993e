package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/tidwall/gjson"

	"MarketPulse/internal/model"
)

// BinanceFetcher reads public spot market data through go-binance.
type BinanceFetcher struct {
	Client *binance.Client
}

// NewBinanceFetcher creates a fetcher against baseURL with optional proxy support.
// No API key is needed for the public endpoints used here.
func NewBinanceFetcher(baseURL, proxyURL string) *BinanceFetcher {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	client.HTTPClient = newHTTPClient(proxyURL, 15*time.Second)
	return &BinanceFetcher{Client: client}
}

func (f *BinanceFetcher) Name() string { return SourceBinance }

// FetchSeries returns up to limit klines as closing-price samples keyed by open time.
func (f *BinanceFetcher) FetchSeries(ctx context.Context, symbol, interval string, limit int) (model.PriceSeries, error) {
	klines, err := f.Client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapBinanceErr("fetch klines", err)
	}

	series := make(model.PriceSeries, 0, len(klines))
	for _, k := range klines {
		closePrice, err := parseNumber("close", k.Close)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
		}
		series = append(series, model.PriceSample{
			Time:  time.UnixMilli(k.OpenTime),
			Close: closePrice,
		})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	return series, nil
}

// FetchPrice returns the last traded price from the ticker endpoint.
// The price field is accepted as a string or a number.
func (f *BinanceFetcher) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := f.Client.BaseURL + "/api/v3/ticker/price?" + url.Values{"symbol": {symbol}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}

	resp, err := f.Client.HTTPClient.Do(req)
	if err != nil {
		return 0, wrapBinanceErr("fetch price", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, wrapBinanceErr("fetch price", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, wrapBinanceErr("fetch price", apiErrorFrom(resp.StatusCode, body))
	}
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("fetch price: %w: invalid json", ErrMalformed)
	}

	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		doc = doc.Get(fmt.Sprintf(`#(symbol==%q)`, symbol))
	}
	price := doc.Get("price")
	if !price.Exists() || doc.Get("symbol").String() != symbol {
		return 0, fmt.Errorf("fetch price: %w: no ticker for %s", ErrMalformed, symbol)
	}
	if price.Type != gjson.String && price.Type != gjson.Number {
		return 0, fmt.Errorf("fetch price: %w: price %s", ErrMalformed, price.Raw)
	}
	v, err := parseNumber("price", price.String())
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	return v, nil
}

// apiErrorFrom reads a Binance error body, falling back to the HTTP status.
func apiErrorFrom(status int, body []byte) error {
	code := gjson.GetBytes(body, "code")
	if !code.Exists() {
		return fmt.Errorf("status %d, body: %s", status, string(body))
	}
	return &common.APIError{Code: code.Int(), Message: gjson.GetBytes(body, "msg").String()}
}

// wrapBinanceErr maps Binance API error codes onto package errors.
func wrapBinanceErr(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		var mapped error
		switch apiErr.Code {
		case -1003, -1015:
			mapped = ErrRateLimited
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121, -1128:
			mapped = ErrInvalidRequest
		default:
			mapped = ErrUnavailable
		}
		return fmt.Errorf("%s: %w: %w", op, mapped, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
