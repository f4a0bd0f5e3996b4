package repository

import (
	"context"
	"time"

	"PipFlow/internal/domain/models"
)

// FrameStream delivers ingest frames from the external harvester.
type FrameStream interface {
	Listen(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Frame, <-chan error)
	Close() error
	IsConnected() bool
}

// HistoryStore persists closed candles and completed trade outcomes, and
// serves recent candles back for indicator priming.
type HistoryStore interface {
	InsertCandle(ctx context.Context, c *models.Candle) error
	InsertOutcome(ctx context.Context, o *models.TradeOutcome) error
	LatestCandles(ctx context.Context, asset string, timeframe, n int) ([]models.Candle, error)
	QueryCandles(ctx context.Context, asset string, timeframe int, from, to time.Time, limit int) ([]models.Candle, error)
	Health(ctx context.Context) error
}

// OrderPublisher hands approved decisions to the execution boundary and
// exports completed outcomes for downstream learning.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, d *models.TradeDecision) error
	PublishOutcome(ctx context.Context, o *models.TradeOutcome) error
	Close() error
}

// TradeSnapshotStore mirrors the pending-trade table so in-flight
// correlations survive a restart.
type TradeSnapshotStore interface {
	Save(ctx context.Context, t *models.PendingTrade) error
	Delete(ctx context.Context, requestID string) error
	Load(ctx context.Context) ([]*models.PendingTrade, error)
}

// Metrics abstracts the Prometheus recorder for the pipeline.
type Metrics interface {
	RecordTick(asset string)
	RecordDropped(kind string)
	RecordCandleClosed(asset string, timeframe int)
	RecordSignal(asset string, decision string)
	RecordDecision(asset string)
	RecordOutcome(win bool)
	RecordPendingTrades(n int)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
