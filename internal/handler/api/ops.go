package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	models "PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/funnel"
	"PipFlow/internal/service/cache"
	"PipFlow/internal/timesync"
	"PipFlow/internal/trades"
	"PipFlow/internal/usecase"
	xhttp "PipFlow/pkg/http"
	xlogger "PipFlow/pkg/logger"
	xutil "PipFlow/pkg/util"
)

const candleCacheTTL = 15 * time.Second

// OpsHandler serves the operational API: health, counters, the pending
// trade table, recent signals, and stored candles.
type OpsHandler struct {
	logger   *xlogger.Logger
	stats    *usecase.StatsTracker
	manager  *trades.Manager
	funnel   *funnel.Funnel
	ts       *timesync.Synchronizer
	history  domrepo.HistoryStore
	ingestor *usecase.FrameIngestor
	cache    cache.BytesCache
}

// OpsOption configures OpsHandler.
type OpsOption func(*OpsHandler)

// WithCandleCache caches recent candle query results.
func WithCandleCache(bc cache.BytesCache) OpsOption {
	return func(h *OpsHandler) { h.cache = bc }
}

func NewOpsHandler(
	logger *xlogger.Logger,
	stats *usecase.StatsTracker,
	manager *trades.Manager,
	fun *funnel.Funnel,
	ts *timesync.Synchronizer,
	history domrepo.HistoryStore,
	ingestor *usecase.FrameIngestor,
	opts ...OpsOption,
) *OpsHandler {
	h := &OpsHandler{
		logger:   logger,
		stats:    stats,
		manager:  manager,
		funnel:   fun,
		ts:       ts,
		history:  history,
		ingestor: ingestor,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/stats", h.Stats)
	g.GET("/trades/pending", h.PendingTrades)
	g.GET("/signals/recent", h.RecentSignals)
	g.GET("/candles", h.Candles)
}

type healthResponse struct {
	Status             string `json:"status"`
	HarvesterConnected bool   `json:"harvesterConnected"`
	ClockSynced        bool   `json:"clockSynced"`
	History            string `json:"history,omitempty"`
}

func (h *OpsHandler) Health(c echo.Context) error {
	res := healthResponse{Status: "ok"}
	if h.ingestor != nil {
		res.HarvesterConnected = h.ingestor.IsConnected()
	}
	if h.ts != nil {
		res.ClockSynced = h.ts.Synced()
	}
	if h.history != nil {
		if err := h.history.Health(c.Request().Context()); err != nil {
			res.History = err.Error()
			res.Status = "degraded"
		} else {
			res.History = "ok"
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OpsHandler) Stats(c echo.Context) error {
	s := h.stats.Snapshot()
	if h.funnel != nil {
		s.Persona = string(h.funnel.Persona())
	}
	if h.ts != nil {
		s.ClockOffset = h.ts.Offset().String()
	}
	if h.manager != nil {
		s.PendingCount = len(h.manager.Pending())
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *OpsHandler) PendingTrades(c echo.Context) error {
	pending := h.manager.Pending()
	return xhttp.ListResponse(c, pending, int64(len(pending)))
}

func (h *OpsHandler) RecentSignals(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	signals := h.stats.RecentSignals(req.Limit)
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *OpsHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	ctx := c.Request().Context()
	var (
		candles []models.Candle
		err     error
	)
	if req.From != "" || req.To != "" {
		from, to, perr := parseRange(req.From, req.To)
		if perr != nil {
			return xhttp.BadRequestResponse(c, perr.Error())
		}
		from, to = xutil.AlignRange(from, to, tf)
		candles, err = h.history.QueryCandles(ctx, req.Asset, tf, from, to, req.Limit)
	} else {
		cacheKey := fmt.Sprintf("candles:%s:%d:%d", req.Asset, tf, req.Limit)
		if h.cache != nil {
			if b, ok, _ := h.cache.GetBytes(cacheKey); ok {
				if json.Unmarshal(b, &candles) == nil {
					c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
					return xhttp.ListResponse(c, candles, int64(len(candles)))
				}
			}
		}
		candles, err = h.history.LatestCandles(ctx, req.Asset, tf, req.Limit)
		if err == nil && h.cache != nil {
			if b, merr := json.Marshal(candles); merr == nil {
				_ = h.cache.SetBytes(cacheKey, b, candleCacheTTL)
			}
		}
	}
	if err != nil {
		h.logger.Error("candles query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, candles, int64(len(candles)))
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Unix(0, 0)
	to := time.Now()
	if fromStr != "" {
		t, ok := xutil.ParseTime(fromStr)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from time %q", fromStr)
		}
		from = t
	}
	if toStr != "" {
		t, ok := xutil.ParseTime(toStr)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to time %q", toStr)
		}
		to = t
	}
	return from, to, nil
}
