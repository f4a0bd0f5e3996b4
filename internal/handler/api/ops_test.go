package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	models "PipFlow/internal/domain/models"
	"PipFlow/internal/service/cache"
	"PipFlow/internal/usecase"
	xlogger "PipFlow/pkg/logger"
)

type fakeHistory struct {
	mu        sync.Mutex
	latest    int
	healthErr error
	candles   []models.Candle
}

func (f *fakeHistory) InsertCandle(context.Context, *models.Candle) error        { return nil }
func (f *fakeHistory) InsertOutcome(context.Context, *models.TradeOutcome) error { return nil }

func (f *fakeHistory) LatestCandles(_ context.Context, asset string, timeframe, n int) ([]models.Candle, error) {
	f.mu.Lock()
	f.latest++
	f.mu.Unlock()
	return f.candles, nil
}

func (f *fakeHistory) QueryCandles(_ context.Context, asset string, timeframe int, from, to time.Time, limit int) ([]models.Candle, error) {
	return f.candles, nil
}

func (f *fakeHistory) Health(context.Context) error { return f.healthErr }

func (f *fakeHistory) latestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func newTestHandler(t *testing.T, history *fakeHistory, opts ...OpsOption) *echo.Echo {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	stats := usecase.NewStatsTracker(10)
	h := NewOpsHandler(log, stats, nil, nil, nil, history, nil, opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doGET(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func envelopeStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env.Status
}

func TestHealthDegradedWhenHistoryDown(t *testing.T) {
	e := newTestHandler(t, &fakeHistory{healthErr: fmt.Errorf("connection refused")})
	rec := doGET(e, "/api/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected http status %d", rec.Code)
	}
	var env struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", env.Data.Status)
	}
}

func TestCandlesServedFromCache(t *testing.T) {
	hist := &fakeHistory{candles: []models.Candle{{Asset: "EURUSD", Timeframe: 60, Close: 1.1}}}
	e := newTestHandler(t, hist, WithCandleCache(cache.NewTTLCache()))

	for i := 0; i < 3; i++ {
		rec := doGET(e, "/api/candles?asset=EURUSD&tf=60")
		if got := envelopeStatus(t, rec); got != http.StatusOK {
			t.Fatalf("request %d: envelope status %d", i, got)
		}
	}
	if calls := hist.latestCalls(); calls != 1 {
		t.Fatalf("store queried %d times, want 1", calls)
	}
}

func TestCandlesRejectsBadRange(t *testing.T) {
	e := newTestHandler(t, &fakeHistory{})
	rec := doGET(e, "/api/candles?asset=EURUSD&from=not-a-time")

	if got := envelopeStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("envelope status %d, want 400", got)
	}
}

func TestCandlesRequiresAsset(t *testing.T) {
	e := newTestHandler(t, &fakeHistory{})
	rec := doGET(e, "/api/candles")

	if got := envelopeStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("envelope status %d, want 400", got)
	}
}
