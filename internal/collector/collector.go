package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// Settings selects what a Collector watches and how RSI is computed.
type Settings struct {
	Symbols    []string
	Intervals  []string
	Stocks     []string
	Limit      int
	Period     int
	Method     string
	Overbought float64
	Oversold   float64
}

// Collector orchestrates data fetching and indicator computation.
// Instruments are fetched one after another, never in parallel.
type Collector struct {
	History  HistoryProvider
	Prices   PriceProvider
	Stocks   StockProvider
	Settings Settings
	Now      func() time.Time

	rsi calculator.RSIFunc
}

// NewCollector creates a new Collector. Any provider may be nil when the
// matching instrument list is empty.
func NewCollector(history HistoryProvider, prices PriceProvider, stocks StockProvider, s Settings) (*Collector, error) {
	if s.Period <= 0 {
		s.Period = calculator.DefaultPeriod
	}
	if s.Limit <= 0 {
		s.Limit = calculator.DefaultLimit(s.Method, s.Period)
	}
	rsi, err := calculator.ForMethod(s.Method)
	if err != nil {
		return nil, err
	}
	if len(s.Symbols) > 0 && (history == nil || prices == nil) {
		return nil, fmt.Errorf("symbols configured without a history and price provider")
	}
	if len(s.Stocks) > 0 && stocks == nil {
		return nil, fmt.Errorf("stocks configured without a stock provider")
	}
	return &Collector{
		History:  history,
		Prices:   prices,
		Stocks:   stocks,
		Settings: s,
		Now:      time.Now,
		rsi:      rsi,
	}, nil
}

// Collect fetches every configured instrument and returns one snapshot each.
// A failing instrument yields a snapshot carrying the error; the cycle goes on.
// Cancellation stops the walk and returns what was gathered so far.
func (c *Collector) Collect(ctx context.Context) []model.Snapshot {
	snaps := make([]model.Snapshot, 0, len(c.Settings.Symbols)+len(c.Settings.Stocks))
	for _, symbol := range c.Settings.Symbols {
		if ctx.Err() != nil {
			return snaps
		}
		snaps = append(snaps, c.collectSymbol(ctx, symbol))
	}
	for _, stock := range c.Settings.Stocks {
		if ctx.Err() != nil {
			return snaps
		}
		snaps = append(snaps, c.collectStock(ctx, stock))
	}
	return snaps
}

func (c *Collector) collectSymbol(ctx context.Context, symbol string) model.Snapshot {
	snap := model.Snapshot{Source: c.History.Name(), Symbol: symbol}
	var errs []string

	for _, interval := range c.Settings.Intervals {
		reading, err := c.reading(ctx, symbol, interval)
		if err != nil {
			log.Printf("[ERROR] %s %s: %v", symbol, interval, err)
			errs = append(errs, fmt.Sprintf("%s: %v", interval, err))
		}
		snap.Readings = append(snap.Readings, reading)
	}

	if price, err := c.Prices.FetchPrice(ctx, symbol); err != nil {
		log.Printf("[ERROR] %s price: %v", symbol, err)
		errs = append(errs, fmt.Sprintf("price: %v", err))
	} else {
		snap.Price = price
		snap.HasPrice = true
	}

	snap.Err = strings.Join(errs, "; ")
	snap.FetchedAt = c.Now()
	return snap
}

func (c *Collector) reading(ctx context.Context, symbol, interval string) (model.IndicatorReading, error) {
	reading := model.IndicatorReading{Interval: interval, Period: c.Settings.Period}

	series, err := c.History.FetchSeries(ctx, symbol, interval, c.Settings.Limit)
	if err != nil {
		return reading, err
	}
	if c.Settings.Method != calculator.MethodWilder {
		series = calculator.Tail(series, c.Settings.Period+1)
	}
	reading.Samples = len(series)
	if last, ok := series.Last(); ok {
		reading.LastClose = last.Close
		reading.LastTime = last.Time
	}

	rsi, err := c.rsi(series, c.Settings.Period)
	if err != nil {
		return reading, err
	}
	reading.RSI = rsi

	switch calculator.Classify(rsi, c.Settings.Overbought, c.Settings.Oversold) {
	case calculator.ZoneOverbought:
		log.Printf("[ALERT] %s %s RSI(%d)=%s overbought", symbol, interval, c.Settings.Period, rsi)
	case calculator.ZoneOversold:
		log.Printf("[ALERT] %s %s RSI(%d)=%s oversold", symbol, interval, c.Settings.Period, rsi)
	case calculator.ZoneUndefined:
		log.Printf("[WARN] %s %s: %d samples, RSI(%d) needs %d", symbol, interval, len(series), c.Settings.Period, c.Settings.Period+1)
	}
	return reading, nil
}

func (c *Collector) collectStock(ctx context.Context, stock string) model.Snapshot {
	snap := model.Snapshot{Source: c.Stocks.Name(), Symbol: stock}
	var errs []string

	if quotes, err := c.Stocks.FetchQuotes(ctx, stock); err != nil {
		log.Printf("[ERROR] %s quotes: %v", stock, err)
		errs = append(errs, fmt.Sprintf("quotes: %v", err))
	} else {
		snap.Quotes = quotes
	}

	if txs, err := c.Stocks.FetchTransactions(ctx, stock); err != nil {
		log.Printf("[ERROR] %s transactions: %v", stock, err)
		errs = append(errs, fmt.Sprintf("transactions: %v", err))
	} else {
		snap.Transactions = txs
		if len(txs) > 0 {
			snap.Price = txs[0].Price
			snap.HasPrice = true
		}
	}

	snap.Err = strings.Join(errs, "; ")
	snap.FetchedAt = c.Now()
	return snap
}
