package collector

import (
	"context"
	"math"
	"time"

	"MarketPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price        float64
	Series       model.PriceSeries
	Quotes       []model.QuoteRow
	Transactions []model.Transaction
	Err          error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(_ context.Context, _, _ string, limit int) (model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Series != nil {
		return m.Series, nil
	}
	return generateMockSeries(m.Price, limit), nil
}

func (m *MockFetcher) FetchPrice(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

func (m *MockFetcher) FetchQuotes(_ context.Context, stock string) ([]model.QuoteRow, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Quotes != nil {
		return m.Quotes, nil
	}
	return []model.QuoteRow{{
		"nemo":           stock,
		"tipo_dato":      "puntas",
		"precio_compra":  m.Price * 0.999,
		"precio_venta":   m.Price * 1.001,
		"cantidad_venta": 1000,
	}}, nil
}

func (m *MockFetcher) FetchTransactions(_ context.Context, _ string) ([]model.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Transactions != nil {
		return m.Transactions, nil
	}
	now := time.Now()
	return []model.Transaction{
		{Price: m.Price, Quantity: 100, Time: now.Format("15:04:05")},
		{Price: m.Price * 0.998, Quantity: 250, Time: now.Add(-time.Minute).Format("15:04:05")},
	}, nil
}

// generateMockSeries produces a gently oscillating series ending now.
func generateMockSeries(basePrice float64, count int) model.PriceSeries {
	series := make(model.PriceSeries, count)
	now := time.Now().Truncate(time.Minute)
	for i := 0; i < count; i++ {
		series[i] = model.PriceSample{
			Time:  now.Add(-time.Duration(count-i) * time.Minute),
			Close: basePrice * (1 + 0.01*math.Sin(float64(i)/2)),
		}
	}
	return series
}

