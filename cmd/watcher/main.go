package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/render"
	"MarketPulse/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MarketPulse starting...")

	// Deferred cleanups live in run so they are not skipped by log.Fatalf.
	if err := run(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	log.Println("[INFO] MarketPulse stopped")
}

func run() error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	sched, err := scheduler.ParseSchedule(cfg.App.Schedule, cfg.Wait())
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if !cfg.ConsoleEnabled() && cfg.Render.SQLitePath == "" && cfg.Render.HTTPAddr == "" {
		return errors.New("no sink enabled: set render.console, render.sqlite_path or render.http_addr")
	}

	// Init providers
	var (
		history collector.HistoryProvider
		prices  collector.PriceProvider
		stocks  collector.StockProvider
	)
	if os.Getenv("MOCK_DATA") == "true" {
		mock := &collector.MockFetcher{Price: 100}
		history, prices, stocks = mock, mock, mock
	} else {
		bf := collector.NewBinanceFetcher(cfg.Binance.BaseURL, cfg.Proxy)
		sf := collector.NewSantiagoFetcher(cfg.Santiago.BaseURL, cfg.Santiago.PriceSummaryPath,
			cfg.Santiago.LastTransactionsPath, cfg.Santiago.Referer, cfg.Santiago.Headers, cfg.Proxy)
		sf.CSRFToken = cfg.Santiago.CSRFToken
		history, prices, stocks = bf, bf, sf
	}
	log.Printf("[INFO] data sources: %s, %s", history.Name(), stocks.Name())

	// Init collector
	overbought, oversold := cfg.Thresholds()
	col, err := collector.NewCollector(history, prices, stocks, collector.Settings{
		Symbols:    cfg.Binance.Symbols,
		Intervals:  cfg.Binance.Intervals,
		Stocks:     cfg.Santiago.Stocks,
		Limit:      cfg.KlineLimit(),
		Period:     cfg.RSI.Period,
		Method:     cfg.RSI.Method,
		Overbought: overbought,
		Oversold:   oversold,
	})
	if err != nil {
		return fmt.Errorf("init collector: %w", err)
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init sinks
	var sinks render.MultiSink
	if cfg.ConsoleEnabled() {
		sinks = append(sinks, render.NewConsoleSink(os.Stdout, true))
	}
	if cfg.Render.SQLitePath != "" {
		ss, err := render.NewSQLiteSink(cfg.Render.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite sink failed, skipping: %v", err)
		} else {
			sinks = append(sinks, ss)
			defer ss.Close()
		}
	}
	if cfg.Render.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		ws := render.NewWebSink(cfg.Wait())
		sinks = append(sinks, ws)
		go func() {
			if err := ws.ListenAndServe(ctx, cfg.Render.HTTPAddr); err != nil {
				log.Printf("[ERROR] http sink: %v", err)
			}
		}()
	}
	if len(sinks) == 0 {
		return errors.New("no sink could be opened")
	}

	poller := scheduler.NewPoller(sched, col, sinks, render.Thresholds{
		Overbought: overbought,
		Oversold:   oversold,
	})

	if os.Getenv("ONCE") == "true" {
		if err := poller.RunOnce(ctx); err != nil {
			return fmt.Errorf("run once: %w", err)
		}
		return nil
	}

	log.Println("[INFO] MarketPulse is running. Press Ctrl+C to stop.")
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("poller: %w", err)
	}
	return nil
}
