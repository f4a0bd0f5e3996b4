package usecase

import (
	"context"
	"time"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/pipeline"
	applogger "PipFlow/pkg/logger"
)

// HistoryRecorder writes closed candles and completed outcomes to the
// history store off the hot path. Records are queued on a buffered
// channel and flushed by one background worker; the pipeline never waits
// on the database.
type HistoryRecorder struct {
	store   domrepo.HistoryStore
	logger  *applogger.Logger
	metrics domrepo.Metrics

	candles  chan models.Candle
	outcomes chan models.TradeOutcome
	done     chan struct{}
	stopped  chan struct{}
}

// RecorderOption configures HistoryRecorder.
type RecorderOption func(*HistoryRecorder)

// WithRecorderLogger sets the structured logger.
func WithRecorderLogger(l *applogger.Logger) RecorderOption {
	return func(r *HistoryRecorder) { r.logger = l }
}

// WithRecorderMetrics sets the metrics recorder.
func WithRecorderMetrics(m domrepo.Metrics) RecorderOption {
	return func(r *HistoryRecorder) { r.metrics = m }
}

// NewHistoryRecorder creates a recorder over store.
func NewHistoryRecorder(store domrepo.HistoryStore, opts ...RecorderOption) *HistoryRecorder {
	r := &HistoryRecorder{
		store:    store,
		candles:  make(chan models.Candle, 4096),
		outcomes: make(chan models.TradeOutcome, 256),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the flush worker.
func (r *HistoryRecorder) Start(ctx context.Context) {
	go r.flushLoop(ctx)
}

// Stop signals the worker and waits for the queues to drain.
func (r *HistoryRecorder) Stop(ctx context.Context) error {
	close(r.done)
	select {
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordCandle queues a closed candle. Non-blocking; drops when the
// queue is full.
func (r *HistoryRecorder) RecordCandle(c models.Candle) {
	select {
	case r.candles <- c:
	default:
		r.recordError("history_candle_drop")
	}
}

// RecordOutcome queues a completed trade outcome.
func (r *HistoryRecorder) RecordOutcome(o models.TradeOutcome) {
	select {
	case r.outcomes <- o:
	default:
		r.recordError("history_outcome_drop")
	}
}

// PrimeFromStore replays the newest stored candles into the pipeline's
// engines for each asset and timeframe. Used at startup before the
// harvester's own priming batches arrive.
func (r *HistoryRecorder) PrimeFromStore(ctx context.Context, pipe *pipeline.Pipeline, assets []string, timeframes []int, n int) {
	for _, asset := range assets {
		for _, tf := range timeframes {
			history, err := r.store.LatestCandles(ctx, asset, tf, n)
			if err != nil {
				r.recordError("history_prime")
				if r.logger != nil {
					r.logger.Warn("priming query failed",
						applogger.String("asset", asset),
						applogger.Int("timeframe", tf),
						applogger.Error(err),
					)
				}
				continue
			}
			if len(history) == 0 {
				continue
			}
			pipe.PrimeIndicators(asset, tf, history)
			if r.logger != nil {
				r.logger.Info("engines primed from store",
					applogger.String("asset", asset),
					applogger.Int("timeframe", tf),
					applogger.Int("candles", len(history)),
				)
			}
		}
	}
}

func (r *HistoryRecorder) flushLoop(ctx context.Context) {
	defer close(r.stopped)
	for {
		select {
		case c := <-r.candles:
			r.insertCandle(ctx, c)
		case o := <-r.outcomes:
			r.insertOutcome(ctx, o)
		case <-r.done:
			// drain what is already queued
			for {
				select {
				case c := <-r.candles:
					r.insertCandle(ctx, c)
				case o := <-r.outcomes:
					r.insertOutcome(ctx, o)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *HistoryRecorder) insertCandle(ctx context.Context, c models.Candle) {
	start := time.Now()
	if err := r.store.InsertCandle(ctx, &c); err != nil {
		r.recordError("history_candle_insert")
		if r.logger != nil {
			r.logger.Warn("candle insert failed", applogger.String("asset", c.Asset), applogger.Error(err))
		}
		return
	}
	r.recordLatency("ch_candle_insert", time.Since(start).Seconds())
}

func (r *HistoryRecorder) insertOutcome(ctx context.Context, o models.TradeOutcome) {
	start := time.Now()
	if err := r.store.InsertOutcome(ctx, &o); err != nil {
		r.recordError("history_outcome_insert")
		if r.logger != nil {
			r.logger.Warn("outcome insert failed", applogger.String("request_id", o.RequestID), applogger.Error(err))
		}
		return
	}
	r.recordLatency("ch_outcome_insert", time.Since(start).Seconds())
}

func (r *HistoryRecorder) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

func (r *HistoryRecorder) recordLatency(op string, seconds float64) {
	if r.metrics != nil {
		r.metrics.RecordLatency(op, seconds)
	}
}
