package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"MarketPulse/internal/model"
)

// SantiagoFetcher reads quotes and trades from the Santiago stock exchange web API.
type SantiagoFetcher struct {
	BaseURL              string
	PriceSummaryPath     string
	LastTransactionsPath string
	Referer              string
	CSRFToken            string
	Headers              map[string]string
	Client               *http.Client
}

// NewSantiagoFetcher creates a fetcher with optional proxy support.
func NewSantiagoFetcher(baseURL, summaryPath, transactionsPath, referer string, headers map[string]string, proxyURL string) *SantiagoFetcher {
	return &SantiagoFetcher{
		BaseURL:              baseURL,
		PriceSummaryPath:     summaryPath,
		LastTransactionsPath: transactionsPath,
		Referer:              referer,
		Headers:              headers,
		Client:               newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (f *SantiagoFetcher) Name() string { return SourceSantiago }

// FetchQuotes returns the "puntas" rows of the price summary.
func (f *SantiagoFetcher) FetchQuotes(ctx context.Context, stock string) ([]model.QuoteRow, error) {
	body, err := f.post(ctx, f.PriceSummaryPath, stock)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes %s: %w", stock, err)
	}
	if !gjson.Get(body, "listaResult").IsArray() {
		return nil, fmt.Errorf("fetch quotes %s: %w: listaResult missing", stock, ErrMalformed)
	}

	rows := gjson.Get(body, `listaResult.#(tipo_dato=="puntas")#`).Array()
	quotes := make([]model.QuoteRow, 0, len(rows))
	for _, r := range rows {
		if m, ok := r.Value().(map[string]any); ok {
			quotes = append(quotes, model.QuoteRow(m))
		}
	}
	return quotes, nil
}

// FetchTransactions returns the most recent trades for a stock.
func (f *SantiagoFetcher) FetchTransactions(ctx context.Context, stock string) ([]model.Transaction, error) {
	body, err := f.post(ctx, f.LastTransactionsPath, stock)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions %s: %w", stock, err)
	}
	list := gjson.Get(body, "listaResult")
	if !list.IsArray() {
		return nil, fmt.Errorf("fetch transactions %s: %w: listaResult missing", stock, ErrMalformed)
	}

	items := list.Array()
	txs := make([]model.Transaction, 0, len(items))
	for _, item := range items {
		price, err := parseNumber("PRECIO", item.Get("PRECIO").String())
		if err != nil {
			return nil, fmt.Errorf("fetch transactions %s: %w", stock, err)
		}
		qty, err := parseNumber("CANTIDAD", item.Get("CANTIDAD").String())
		if err != nil {
			return nil, fmt.Errorf("fetch transactions %s: %w", stock, err)
		}
		txs = append(txs, model.Transaction{
			Price:    price,
			Quantity: qty,
			Time:     stripDate(item.Get("HORA").String()),
		})
	}
	return txs, nil
}

func (f *SantiagoFetcher) post(ctx context.Context, path, stock string) (string, error) {
	payload, err := json.Marshal(map[string]string{"nemo": stock})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	for k, v := range f.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}
	req.Header.Set("Referer", f.Referer+stock)
	if f.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", f.CSRFToken)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrUnavailable, resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	return string(body), nil
}

var datePrefix = regexp.MustCompile(`^\s*\d{1,2}/\d{1,2}/\d{4}\s+`)

// stripDate drops the "dd/mm/yyyy " prefix the exchange puts on trade times.
func stripDate(hora string) string {
	return datePrefix.ReplaceAllString(hora, "")
}
