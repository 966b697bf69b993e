package render

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebSink_BeforeFirstRender(t *testing.T) {
	w := NewWebSink(time.Minute)

	rec := get(t, w.Handler(), "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UpdatedAt string   `json:"updated_at"`
		Records   []Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "never", body.UpdatedAt)
	assert.Empty(t, body.Records)

	assert.Equal(t, http.StatusOK, get(t, w.Handler(), "/healthz").Code)
}

func TestWebSink_ServesLatestRecords(t *testing.T) {
	w := NewWebSink(2 * time.Minute)
	w.Now = func() time.Time { return at }

	require.NoError(t, w.Render(Format(sampleSnapshots(), th)))

	rec := get(t, w.Handler(), "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		UpdatedAt string   `json:"updated_at"`
		Records   []Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-06-14 12:00:00", body.UpdatedAt)
	require.Len(t, body.Records, 3)
	assert.Equal(t, "BTCUSDT", body.Records[0].Symbol)
	assert.Equal(t, "75.0", body.Records[0].Indicators[0].RSI)

	page := get(t, w.Handler(), "/")
	require.Equal(t, http.StatusOK, page.Code)
	html := page.Body.String()
	assert.Contains(t, html, `content="120"`)
	assert.Contains(t, html, "BTCUSDT")
	assert.Contains(t, html, `class="overbought"`)
	assert.Contains(t, html, "Transactions:")
	assert.Contains(t, html, "4h: connection reset")
}

func TestWebSink_RenderCopiesRecords(t *testing.T) {
	w := NewWebSink(0)
	records := Format(sampleSnapshots(), th)
	require.NoError(t, w.Render(records))

	records[0].Symbol = "MUTATED"
	got, _ := w.snapshot()
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
}
