package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketPulse/internal/calculator"
)

// Default RSI zone thresholds.
const (
	DefaultOverbought = 70.0
	DefaultOversold   = 30.0
)

// Config holds all application configuration.
type Config struct {
	App struct {
		WaitingSeconds int    `yaml:"waiting_seconds"`
		Schedule       string `yaml:"schedule"` // optional cron spec, overrides waiting_seconds
	} `yaml:"app"`
	Binance struct {
		BaseURL   string   `yaml:"base_url"`
		Symbols   []string `yaml:"symbols"`
		Intervals []string `yaml:"intervals"`
		Limit     int      `yaml:"limit"` // klines per request, 0 means period+1
	} `yaml:"binance"`
	Santiago struct {
		BaseURL              string            `yaml:"base_url"`
		PriceSummaryPath     string            `yaml:"price_summary_path"`
		LastTransactionsPath string            `yaml:"last_transactions_path"`
		Referer              string            `yaml:"referer"`
		CSRFToken            string            `yaml:"csrf_token"`
		Stocks               []string          `yaml:"stocks"`
		Headers              map[string]string `yaml:"headers"`
	} `yaml:"santiago"`
	RSI struct {
		Period     int     `yaml:"period"`
		Method     string  `yaml:"method"`
		Overbought *float64 `yaml:"overbought"` // nil means unset; 0 is a valid threshold
		Oversold   *float64 `yaml:"oversold"`
	} `yaml:"rsi"`
	Render struct {
		Console    *bool  `yaml:"console"`
		SQLitePath string `yaml:"sqlite_path"`
		HTTPAddr   string `yaml:"http_addr"`
	} `yaml:"render"`
	Proxy string `yaml:"proxy"`
}

// DefaultHeaders mirror a desktop browser; the Santiago API rejects bare clients.
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.5",
	"Content-Type":    "application/json;charset=utf-8",
}

// Load reads config from a YAML file, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	if v := os.Getenv("WAITING_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.WaitingSeconds = n
		} else {
			log.Printf("[WARN] ignoring WAITING_SECONDS=%q: not an integer", v)
		}
	}
	if v := os.Getenv("POLL_SCHEDULE"); v != "" {
		cfg.App.Schedule = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}
	if v := os.Getenv("BINANCE_SYMBOLS"); v != "" {
		cfg.Binance.Symbols = splitList(v)
	}
	if v := os.Getenv("BINANCE_INTERVALS"); v != "" {
		cfg.Binance.Intervals = splitList(v)
	}
	if v := os.Getenv("SANTIAGO_STOCKS"); v != "" {
		cfg.Santiago.Stocks = splitList(v)
	}
	if v := os.Getenv("SANTIAGO_CSRF_TOKEN"); v != "" {
		cfg.Santiago.CSRFToken = v
	}
	if v := os.Getenv("RSI_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RSI.Period = n
		} else {
			log.Printf("[WARN] ignoring RSI_PERIOD=%q: not an integer", v)
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Render.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Render.HTTPAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.App.WaitingSeconds == 0 {
		cfg.App.WaitingSeconds = 120
	}
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://api.binance.com"
	}
	if len(cfg.Binance.Intervals) == 0 {
		cfg.Binance.Intervals = []string{"15m", "1h"}
	}
	if cfg.Santiago.BaseURL == "" {
		cfg.Santiago.BaseURL = "https://www.bolsadesantiago.com"
	}
	if cfg.Santiago.PriceSummaryPath == "" {
		cfg.Santiago.PriceSummaryPath = "/api/RV_Instrumentos/getResumenPrecios"
	}
	if cfg.Santiago.LastTransactionsPath == "" {
		cfg.Santiago.LastTransactionsPath = "/api/RV_Instrumentos/getUltimasTransacciones"
	}
	if cfg.Santiago.Referer == "" {
		cfg.Santiago.Referer = "https://www.bolsadesantiago.com/resumen_instrumento/"
	}
	if cfg.Santiago.Headers == nil {
		cfg.Santiago.Headers = make(map[string]string, len(DefaultHeaders))
	}
	for k, v := range DefaultHeaders {
		if _, ok := cfg.Santiago.Headers[k]; !ok {
			cfg.Santiago.Headers[k] = v
		}
	}
	if cfg.RSI.Period == 0 {
		cfg.RSI.Period = 14
	}
	if cfg.RSI.Method == "" {
		cfg.RSI.Method = "simple"
	}
	if cfg.RSI.Overbought == nil {
		v := DefaultOverbought
		cfg.RSI.Overbought = &v
	}
	if cfg.RSI.Oversold == nil {
		v := DefaultOversold
		cfg.RSI.Oversold = &v
	}
	if cfg.Render.Console == nil {
		on := true
		cfg.Render.Console = &on
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Binance.Symbols) == 0 && len(c.Santiago.Stocks) == 0 {
		return fmt.Errorf("at least one of binance.symbols or santiago.stocks is required")
	}
	if c.RSI.Period <= 0 {
		return fmt.Errorf("rsi.period must be positive")
	}
	if c.RSI.Method != "simple" && c.RSI.Method != "wilder" {
		return fmt.Errorf("rsi.method must be simple or wilder, got %q", c.RSI.Method)
	}
	overbought, oversold := c.Thresholds()
	if overbought < 0 || overbought > 100 || oversold < 0 || oversold > 100 {
		return fmt.Errorf("rsi thresholds must be within [0,100]")
	}
	if oversold >= overbought {
		return fmt.Errorf("rsi.oversold must be below rsi.overbought")
	}
	if limit := c.KlineLimit(); limit < c.RSI.Period+1 {
		return fmt.Errorf("binance.limit must be at least rsi.period+1 (%d), got %d", c.RSI.Period+1, limit)
	}
	if c.Binance.Limit > calculator.MaxKlines {
		return fmt.Errorf("binance.limit must not exceed %d", calculator.MaxKlines)
	}
	if c.App.Schedule == "" && c.App.WaitingSeconds <= 0 {
		return fmt.Errorf("app.waiting_seconds must be positive")
	}
	return nil
}

// KlineLimit is the number of klines requested per symbol and interval.
// Unset, it is period+1 for the simple method and a longer history for wilder.
func (c *Config) KlineLimit() int {
	if c.Binance.Limit > 0 {
		return c.Binance.Limit
	}
	return calculator.DefaultLimit(c.RSI.Method, c.RSI.Period)
}

// Thresholds returns the overbought and oversold levels, defaulting unset ones.
func (c *Config) Thresholds() (overbought, oversold float64) {
	overbought, oversold = DefaultOverbought, DefaultOversold
	if c.RSI.Overbought != nil {
		overbought = *c.RSI.Overbought
	}
	if c.RSI.Oversold != nil {
		oversold = *c.RSI.Oversold
	}
	return overbought, oversold
}

// Wait is the delay between the end of one cycle and the start of the next.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.App.WaitingSeconds) * time.Second
}

// ConsoleEnabled reports whether records are printed to stdout.
func (c *Config) ConsoleEnabled() bool {
	return c.Render.Console == nil || *c.Render.Console
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
