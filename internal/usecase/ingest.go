package usecase

import (
	"context"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/funnel"
	mid "PipFlow/internal/middleware"
	"PipFlow/internal/pipeline"
	"PipFlow/internal/service/harvester"
	"PipFlow/internal/trades"
	applogger "PipFlow/pkg/logger"
)

// FrameIngestor consumes the harvester frame stream and routes each frame
// type to its owner: pips into the pipeline, priming batches into the
// builders and engines, trade events into the correlator, balance reports
// into the funnel.
type FrameIngestor struct {
	stream  domrepo.FrameStream
	guard   *mid.IngressGuard
	pipe    *pipeline.Pipeline
	manager *trades.Manager
	funnel  *funnel.Funnel
	stats   *StatsTracker
	logger  *applogger.Logger
	metrics domrepo.Metrics
	done    chan struct{}
}

// IngestorOption configures FrameIngestor.
type IngestorOption func(*FrameIngestor)

// WithIngestLogger sets the structured logger.
func WithIngestLogger(l *applogger.Logger) IngestorOption {
	return func(f *FrameIngestor) { f.logger = l }
}

// WithIngestMetrics sets the metrics recorder.
func WithIngestMetrics(m domrepo.Metrics) IngestorOption {
	return func(f *FrameIngestor) { f.metrics = m }
}

// WithIngestStats attaches the ops counters.
func WithIngestStats(s *StatsTracker) IngestorOption {
	return func(f *FrameIngestor) { f.stats = s }
}

// NewFrameIngestor creates a FrameIngestor.
func NewFrameIngestor(
	stream domrepo.FrameStream,
	guard *mid.IngressGuard,
	pipe *pipeline.Pipeline,
	manager *trades.Manager,
	fun *funnel.Funnel,
	opts ...IngestorOption,
) *FrameIngestor {
	f := &FrameIngestor{
		stream:  stream,
		guard:   guard,
		pipe:    pipe,
		manager: manager,
		funnel:  fun,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsConnected reports whether the harvester is attached.
func (f *FrameIngestor) IsConnected() bool { return f.stream.IsConnected() }

// Start opens the listener and launches the consume loop.
func (f *FrameIngestor) Start(ctx context.Context) error {
	if err := f.stream.Listen(ctx); err != nil {
		return err
	}
	if f.guard != nil {
		f.guard.Start(ctx)
	}
	frames, errs := f.stream.Read(ctx)
	go f.consume(ctx, frames, errs)
	return nil
}

// Stop closes the stream and waits for the consume loop to drain, so no
// frame is routed into components that are already shutting down.
func (f *FrameIngestor) Stop() error {
	if f.guard != nil {
		f.guard.Stop()
	}
	err := f.stream.Close()
	<-f.done
	return err
}

func (f *FrameIngestor) consume(ctx context.Context, frames <-chan models.Frame, errs <-chan error) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				f.recordError("stream")
				if f.logger != nil {
					f.logger.Warn("harvester stream error", applogger.Error(err))
				}
			}
		case frame, ok := <-frames:
			if !ok {
				return
			}
			f.route(ctx, frame)
		}
	}
}

func (f *FrameIngestor) route(ctx context.Context, frame models.Frame) {
	switch frame.Type {
	case harvester.FramePip:
		tick, err := harvester.DecodePip(frame)
		if err != nil {
			f.recordDecodeError(frame.Type, err)
			return
		}
		if f.stats != nil {
			f.stats.TickSeen()
		}
		_ = f.guard.Submit(ctx, tick)

	case harvester.FrameHistoricalCandles:
		p, err := harvester.DecodeHistoricalCandles(frame)
		if err != nil {
			f.recordDecodeError(frame.Type, err)
			return
		}
		f.pipe.PrimeIndicators(p.Asset, p.Timeframe, p.Candles)
		if p.Current != nil {
			f.pipe.PrimeCurrentCandle(p.Asset, p.Timeframe, *p.Current)
		}
		if f.logger != nil {
			f.logger.Info("history primed",
				applogger.String("asset", p.Asset),
				applogger.Int("timeframe", p.Timeframe),
				applogger.Int("candles", len(p.Candles)),
			)
		}

	case harvester.FrameTradeOpened:
		p, err := harvester.DecodeTradeOpened(frame)
		if err != nil {
			f.recordDecodeError(frame.Type, err)
			return
		}
		f.manager.MapTradeID(ctx, p.RequestID, p.UniqueID)

	case harvester.FrameDealResult:
		r, err := harvester.DecodeDealResult(frame)
		if err != nil {
			f.recordDecodeError(frame.Type, err)
			return
		}
		f.manager.ProcessIndividualResult(ctx, r)

	case harvester.FrameBalance:
		b, err := harvester.DecodeBalance(frame)
		if err != nil {
			f.recordDecodeError(frame.Type, err)
			return
		}
		f.funnel.SetBalance(b)

	default:
		f.recordError("frame_unknown")
		if f.logger != nil {
			f.logger.Warn("unknown frame type", applogger.String("type", frame.Type))
		}
	}
}

func (f *FrameIngestor) recordDecodeError(frameType string, err error) {
	f.recordError("frame_decode")
	if f.logger != nil {
		f.logger.Warn("frame decode failed", applogger.String("type", frameType), applogger.Error(err))
	}
}

func (f *FrameIngestor) recordError(kind string) {
	if f.metrics != nil {
		f.metrics.RecordError(kind)
	}
}
