package render

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const pageHTML = `{{define "page"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>MarketPulse</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.stock-data { border-bottom: 1px solid #ddd; padding: 0.5em 0; }
.overbought { color: #b00020; }
.oversold { color: #00695c; }
.error { color: #b00020; }
pre { background: #f6f6f6; padding: 0.5em; }
</style>
</head>
<body>
<h1>MarketPulse</h1>
<p>Updated {{.Updated}}</p>
<div id="data-container">
{{range .Records}}<div class="stock-data">
<h3>{{.Source}}: {{.Symbol}} <small>{{.Price}}</small></h3>
{{if .Indicators}}<table>
<tr><th>Interval</th><th>RSI</th><th>Zone</th><th>Last close</th></tr>
{{range .Indicators}}<tr class="{{.Zone}}"><td>{{.Interval}}</td><td>{{.RSI}}</td><td>{{.Zone}}</td><td>{{.LastClose}}</td></tr>
{{end}}</table>{{end}}
{{if .Quotes}}<h4>Quotes:</h4><pre>{{json .Quotes}}</pre>{{end}}
{{if .Transactions}}<h4>Transactions:</h4><pre>{{json .Transactions}}</pre>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
</div>
{{end}}</div>
</body>
</html>{{end}}`

var pageTemplate = template.Must(template.New("root").Funcs(template.FuncMap{
	"json": func(v any) string {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err.Error()
		}
		return string(data)
	},
}).Parse(pageHTML))

// WebSink keeps the latest records in memory and serves them over HTTP.
type WebSink struct {
	Refresh time.Duration
	Now     func() time.Time

	mu      sync.RWMutex
	records []Record
	updated time.Time
	engine  *gin.Engine
}

// NewWebSink builds the routes; refresh sets the page reload interval.
func NewWebSink(refresh time.Duration) *WebSink {
	w := &WebSink{Refresh: refresh, Now: time.Now}

	e := gin.New()
	e.Use(gin.Recovery())
	e.SetHTMLTemplate(pageTemplate)
	e.GET("/", w.page)
	e.GET("/api/records", w.list)
	e.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	w.engine = e
	return w
}

func (w *WebSink) Render(records []Record) error {
	cp := make([]Record, len(records))
	copy(cp, records)

	w.mu.Lock()
	w.records = cp
	w.updated = w.Now()
	w.mu.Unlock()
	return nil
}

// Handler exposes the routes, mainly for tests.
func (w *WebSink) Handler() http.Handler { return w.engine }

// ListenAndServe serves until ctx is cancelled.
func (w *WebSink) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           w.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http shutdown: %v", err)
		}
	}()

	log.Printf("[INFO] http sink listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *WebSink) snapshot() ([]Record, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	updated := "never"
	if !w.updated.IsZero() {
		updated = w.updated.Format(timeLayout)
	}
	return w.records, updated
}

func (w *WebSink) page(c *gin.Context) {
	records, updated := w.snapshot()
	refresh := int(w.Refresh / time.Second)
	if refresh <= 0 {
		refresh = 60
	}
	c.HTML(http.StatusOK, "page", gin.H{
		"Records": records,
		"Updated": updated,
		"Refresh": refresh,
	})
}

func (w *WebSink) list(c *gin.Context) {
	records, updated := w.snapshot()
	if records == nil {
		records = []Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"updated_at": updated,
		"records":    records,
	})
}
