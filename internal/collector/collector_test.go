package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// scriptedHistory returns a fixed series per interval and records requests.
type scriptedHistory struct {
	series map[string]model.PriceSeries
	errs   map[string]error
	limits []int
}

func (s *scriptedHistory) Name() string { return SourceBinance }

func (s *scriptedHistory) FetchSeries(_ context.Context, _, interval string, limit int) (model.PriceSeries, error) {
	s.limits = append(s.limits, limit)
	if err := s.errs[interval]; err != nil {
		return nil, err
	}
	return s.series[interval], nil
}

func rampSeries(n int, start, step float64) model.PriceSeries {
	t0 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	s := make(model.PriceSeries, n)
	for i := range s {
		s[i] = model.PriceSample{Time: t0.Add(time.Duration(i) * time.Hour), Close: start + float64(i)*step}
	}
	return s
}

func fixedNow() time.Time { return time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC) }

func TestNewCollector_Validation(t *testing.T) {
	mock := &MockFetcher{Price: 1}

	_, err := NewCollector(nil, nil, nil, Settings{Symbols: []string{"BTCUSDT"}})
	assert.Error(t, err)

	_, err = NewCollector(mock, mock, nil, Settings{Stocks: []string{"ILC"}})
	assert.Error(t, err)

	_, err = NewCollector(mock, mock, mock, Settings{Method: "ema"})
	assert.Error(t, err)

	c, err := NewCollector(mock, mock, mock, Settings{})
	require.NoError(t, err)
	assert.Equal(t, 14, c.Settings.Period)
	assert.Equal(t, 15, c.Settings.Limit)
}

func TestCollector_Collect_Symbols(t *testing.T) {
	history := &scriptedHistory{
		series: map[string]model.PriceSeries{
			"1h": rampSeries(30, 100, 1),  // all gains
			"4h": rampSeries(30, 100, -1), // all losses
			"1d": rampSeries(5, 100, 1),   // too short
		},
	}
	prices := &MockFetcher{Price: 64000}

	c, err := NewCollector(history, prices, nil, Settings{
		Symbols:    []string{"BTCUSDT"},
		Intervals:  []string{"1h", "4h", "1d"},
		Period:     14,
		Limit:      30,
		Overbought: 70,
		Oversold:   30,
	})
	require.NoError(t, err)
	c.Now = fixedNow

	snaps := c.Collect(context.Background())
	require.Len(t, snaps, 1)
	snap := snaps[0]

	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, SourceBinance, snap.Source)
	assert.True(t, snap.HasPrice)
	assert.Equal(t, 64000.0, snap.Price)
	assert.Empty(t, snap.Err)
	assert.Equal(t, fixedNow(), snap.FetchedAt)
	assert.Equal(t, []int{30, 30, 30}, history.limits)

	require.Len(t, snap.Readings, 3)
	assert.Equal(t, model.RSIResult{Value: 100, Defined: true}, snap.Readings[0].RSI)
	assert.Equal(t, 15, snap.Readings[0].Samples)
	assert.Equal(t, 129.0, snap.Readings[0].LastClose)
	assert.Equal(t, model.RSIResult{Value: 0, Defined: true}, snap.Readings[1].RSI)
	assert.False(t, snap.Readings[2].RSI.Defined)
	assert.Equal(t, 5, snap.Readings[2].Samples)
}

func TestCollector_Collect_UsesMostRecentWindow(t *testing.T) {
	// Long rally then a sharp fall: only the last period+1 closes count.
	series := append(rampSeries(40, 100, 1), rampSeries(15, 140, -1)...)
	history := &scriptedHistory{series: map[string]model.PriceSeries{"1h": series}}

	c, err := NewCollector(history, &MockFetcher{Price: 1}, nil, Settings{
		Symbols: []string{"ETHUSDT"}, Intervals: []string{"1h"}, Limit: 55,
	})
	require.NoError(t, err)

	snap := c.Collect(context.Background())[0]
	assert.Equal(t, 0.0, snap.Readings[0].RSI.Value)
}

func TestCollector_Collect_WilderUsesWholeSeries(t *testing.T) {
	series := append(rampSeries(40, 100, 1), rampSeries(15, 140, -1)...)
	history := &scriptedHistory{series: map[string]model.PriceSeries{"1h": series}}

	c, err := NewCollector(history, &MockFetcher{Price: 1}, nil, Settings{
		Symbols: []string{"ETHUSDT"}, Intervals: []string{"1h"}, Method: calculator.MethodWilder,
	})
	require.NoError(t, err)
	assert.Equal(t, 140, c.Settings.Limit)

	snap := c.Collect(context.Background())[0]
	assert.Equal(t, []int{140}, history.limits)

	reading := snap.Readings[0]
	assert.Equal(t, len(series), reading.Samples)
	want, err := calculator.WilderRSI(series, 14)
	require.NoError(t, err)
	assert.Equal(t, want, reading.RSI)
	// The rally still weighs on the smoothed averages, unlike the 15-close window.
	assert.Greater(t, reading.RSI.Value, 30.0)
	assert.Less(t, reading.RSI.Value, 50.0)
}

func TestCollector_Collect_IsolatesFailures(t *testing.T) {
	boom := errors.New("connection reset")
	history := &scriptedHistory{
		series: map[string]model.PriceSeries{"1h": rampSeries(15, 10, 1)},
		errs:   map[string]error{"4h": boom},
	}
	stocks := &MockFetcher{Err: boom}

	c, err := NewCollector(history, &MockFetcher{Price: 2}, stocks, Settings{
		Symbols:   []string{"BNBUSDT"},
		Intervals: []string{"1h", "4h"},
		Stocks:    []string{"SQM-B"},
	})
	require.NoError(t, err)

	snaps := c.Collect(context.Background())
	require.Len(t, snaps, 2)

	crypto := snaps[0]
	assert.Contains(t, crypto.Err, "4h: connection reset")
	require.Len(t, crypto.Readings, 2)
	assert.True(t, crypto.Readings[0].RSI.Defined)
	assert.False(t, crypto.Readings[1].RSI.Defined)
	assert.True(t, crypto.HasPrice)

	stock := snaps[1]
	assert.Equal(t, "SQM-B", stock.Symbol)
	assert.Contains(t, stock.Err, "quotes: connection reset")
	assert.Contains(t, stock.Err, "transactions: connection reset")
	assert.Empty(t, stock.Quotes)
	assert.Empty(t, stock.Transactions)
	assert.False(t, stock.HasPrice)
}

func TestCollector_Collect_Stocks(t *testing.T) {
	stocks := &MockFetcher{
		Price: 4200,
		Transactions: []model.Transaction{
			{Price: 4205, Quantity: 10, Time: "12:00:01"},
			{Price: 4199, Quantity: 5, Time: "11:58:40"},
		},
	}
	c, err := NewCollector(nil, nil, stocks, Settings{Stocks: []string{"ILC", "PLANVITAL"}})
	require.NoError(t, err)

	snaps := c.Collect(context.Background())
	require.Len(t, snaps, 2)
	assert.Equal(t, "ILC", snaps[0].Symbol)
	assert.Equal(t, "PLANVITAL", snaps[1].Symbol)
	assert.Equal(t, 4205.0, snaps[0].Price)
	require.Len(t, snaps[0].Quotes, 1)
	assert.Equal(t, "ILC", snaps[0].Quotes[0]["nemo"])
}

func TestCollector_Collect_StopsOnCancel(t *testing.T) {
	c, err := NewCollector(&MockFetcher{Price: 1}, &MockFetcher{Price: 1}, &MockFetcher{Price: 1}, Settings{
		Symbols: []string{"A", "B"}, Intervals: []string{"1m"}, Stocks: []string{"C"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, c.Collect(ctx))
}

func TestMockFetcher_GeneratesSeries(t *testing.T) {
	m := &MockFetcher{Price: 100}
	s, err := m.FetchSeries(context.Background(), "X", "1m", 20)
	require.NoError(t, err)
	require.Len(t, s, 20)
	for i := 1; i < len(s); i++ {
		assert.True(t, s[i].Time.After(s[i-1].Time))
	}
}
