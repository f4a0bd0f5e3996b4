package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"PipFlow/internal/candles"
	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/sequencer"
	"PipFlow/internal/timesync"
	applogger "PipFlow/pkg/logger"
)

const defaultQueueSize = 2048

// Config holds the pipeline's channel and aggregation parameters.
type Config struct {
	Timeframes  []int
	QueueSize   int
	LiveUpdates bool
}

// Pipeline runs the two stream-processing workers. The pip worker owns
// the sequencer and candle builders; the analysis worker owns the router
// and indicator engines. They share nothing and communicate only through
// typed channels, so each asset's state is touched by exactly one
// goroutine.
type Pipeline struct {
	cfg     Config
	ts      *timesync.Synchronizer
	seq     *sequencer.Sequencer
	bank    *candles.Bank
	router  *candles.Router
	logger  *applogger.Logger
	metrics domrepo.Metrics

	pipCh         chan Message
	analysisCh    chan Message
	pipReady      chan struct{}
	analysisReady chan struct{}

	candleSink func(models.Candle)
	liveSink   func(models.Candle)
	seqOpts    []sequencer.Option

	wg      sync.WaitGroup
	started bool
	stopped atomic.Bool
}

// Option configures Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCandleSink adds an observer for closed candles (persistence,
// telemetry). Runs on the pip worker; must not block.
func WithCandleSink(fn func(models.Candle)) Option {
	return func(p *Pipeline) { p.candleSink = fn }
}

// WithLiveSink adds an observer for live candle updates.
func WithLiveSink(fn func(models.Candle)) Option {
	return func(p *Pipeline) { p.liveSink = fn }
}

// WithSequencerOptions forwards options to the internal sequencer.
func WithSequencerOptions(opts ...sequencer.Option) Option {
	return func(p *Pipeline) { p.seqOpts = opts }
}

// New creates a Pipeline. engineFactory builds the per-asset indicator
// engine; it is invoked lazily from the analysis worker.
func New(cfg Config, ts *timesync.Synchronizer, engineFactory func(asset string) candles.Engine, opts ...Option) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	p := &Pipeline{
		cfg:           cfg,
		ts:            ts,
		router:        candles.NewRouter(engineFactory),
		pipCh:         make(chan Message, cfg.QueueSize),
		analysisCh:    make(chan Message, cfg.QueueSize),
		pipReady:      make(chan struct{}),
		analysisReady: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	onClose := func(c models.Candle) {
		if p.metrics != nil {
			p.metrics.RecordCandleClosed(c.Asset, c.Timeframe)
		}
		if p.candleSink != nil {
			p.candleSink(c)
		}
		// candle flow carries backpressure; the analysis worker never
		// sends back so this cannot deadlock
		p.analysisCh <- Message{Type: MsgCandle, Candle: c}
	}
	var onLive func(models.Candle)
	if cfg.LiveUpdates {
		onLive = func(c models.Candle) {
			if p.liveSink != nil {
				p.liveSink(c)
			}
			select {
			case p.analysisCh <- Message{Type: MsgLiveCandle, Candle: c}:
			default:
				// live updates are advisory, drop under pressure
			}
		}
	}
	p.bank = candles.NewBank(cfg.Timeframes, onClose, onLive)

	seqOpts := append([]sequencer.Option{}, p.seqOpts...)
	if p.logger != nil {
		seqOpts = append(seqOpts, sequencer.WithLogger(p.logger))
	}
	if p.metrics != nil {
		seqOpts = append(seqOpts, sequencer.WithMetrics(p.metrics))
	}
	p.seq = sequencer.New(func(t models.Tick) {
		p.ts.Update(t.Timestamp * 1000)
		p.bank.Apply(t, false)
		if p.metrics != nil {
			p.metrics.RecordLastPrice(t.Asset, t.Price)
		}
	}, seqOpts...)

	return p
}

// Start launches both workers and waits for their readiness acks.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	p.started = true

	p.wg.Add(2)
	go p.pipWorker()
	go p.analysisWorker()

	p.pipCh <- Message{Type: MsgStart}
	p.analysisCh <- Message{Type: MsgStart}

	for _, ready := range []chan struct{}{p.pipReady, p.analysisReady} {
		select {
		case <-ready:
		case <-ctx.Done():
			return fmt.Errorf("pipeline start: %w", ctx.Err())
		}
	}
	if p.logger != nil {
		p.logger.Info("pipeline workers started", applogger.Any("timeframes", p.cfg.Timeframes))
	}
	return nil
}

// Submit hands one raw tick to the pip worker. Non-blocking: when the
// queue is full the tick is dropped and counted.
func (p *Pipeline) Submit(ctx context.Context, t models.Tick) error {
	if p.stopped.Load() {
		return fmt.Errorf("pipeline stopped")
	}
	select {
	case p.pipCh <- Message{Type: MsgPip, Tick: t}:
		if p.metrics != nil {
			p.metrics.RecordTick(t.Asset)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.RecordDropped("queue_full")
		}
		return nil
	}
}

// PrimeIndicators replays historical candles into an asset's engine.
func (p *Pipeline) PrimeIndicators(asset string, timeframe int, history []models.Candle) {
	if p.stopped.Load() || len(history) == 0 {
		return
	}
	p.analysisCh <- Message{Type: MsgPrimeIndicators, Asset: asset, Timeframe: timeframe, History: history}
}

// PrimeCurrentCandle seeds the forming candle of one builder so the first
// live close after startup is complete.
func (p *Pipeline) PrimeCurrentCandle(asset string, timeframe int, c models.Candle) {
	if p.stopped.Load() {
		return
	}
	p.pipCh <- Message{Type: MsgPrimeCurrentCandle, Asset: asset, Timeframe: timeframe, Candle: c}
}

// Assets lists the assets currently tracked by the analysis worker.
// Safe only once the pipeline is quiesced or for approximate stats.
func (p *Pipeline) Assets() []string { return p.router.Assets() }

// Stop closes the worker channels in flow order and waits for drain.
// Callers must stop all producers first.
func (p *Pipeline) Stop(ctx context.Context) error {
	if !p.started || !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(p.pipCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if p.logger != nil {
			p.logger.Info("pipeline stopped")
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline stop: %w", ctx.Err())
	}
}

// pipWorker owns timesync updates, sequencing, and candle aggregation.
func (p *Pipeline) pipWorker() {
	defer p.wg.Done()
	// closing the analysis channel here guarantees no send-after-close:
	// the pip worker is the only data producer once priming is done
	defer close(p.analysisCh)

	for msg := range p.pipCh {
		switch msg.Type {
		case MsgStart:
			close(p.pipReady)
		case MsgPip:
			p.seq.Submit(msg.Tick)
		case MsgPrimeCurrentCandle:
			p.bank.Seed(msg.Asset, msg.Timeframe, msg.Candle)
		default:
			if p.metrics != nil {
				p.metrics.RecordError("pip_worker_message")
			}
		}
	}
}

// analysisWorker owns the router and the indicator engines.
func (p *Pipeline) analysisWorker() {
	defer p.wg.Done()

	for msg := range p.analysisCh {
		switch msg.Type {
		case MsgStart:
			close(p.analysisReady)
		case MsgCandle:
			p.router.RouteClose(msg.Candle)
		case MsgLiveCandle:
			p.router.RouteLive(msg.Candle)
		case MsgPrimeIndicators:
			p.router.Prime(msg.Asset, msg.Timeframe, msg.History)
		default:
			if p.metrics != nil {
				p.metrics.RecordError("analysis_worker_message")
			}
		}
	}
}
