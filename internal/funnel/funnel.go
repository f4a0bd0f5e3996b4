package funnel

import (
	"math/rand"
	"sync"
	"time"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	applogger "PipFlow/pkg/logger"
)

// Config holds the funnel's window and sizing parameters. Immutable after
// construction; validated by the config loader.
type Config struct {
	Window        time.Duration
	BaseRiskPct   float64 // fraction of balance risked per trade
	MinInvestment float64
	MaxInvestment float64
	DelayMinMs    int
	DelayMaxMs    int
}

// DefaultConfig returns the production funnel defaults.
func DefaultConfig() Config {
	return Config{
		Window:        2 * time.Second,
		BaseRiskPct:   0.02,
		MinInvestment: 1,
		MaxInvestment: 100,
		DelayMinMs:    400,
		DelayMaxMs:    2200,
	}
}

// Funnel batches signals arriving within one rolling window and emits at
// most one approved decision per window: admission control against
// overtrading correlated signals. Submit is non-blocking; the window
// timer is the only suspension point.
type Funnel struct {
	mu       sync.Mutex
	cfg      Config
	buf      []models.Signal
	pending  bool
	behavior *Behavior
	weightFn func(timeframe int) float64
	emit     func(models.TradeDecision)
	rng      *rand.Rand
	logger   *applogger.Logger
	metrics  domrepo.Metrics
}

// Option configures Funnel.
type Option func(*Funnel)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(f *Funnel) { f.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(f *Funnel) { f.metrics = m }
}

// WithTimeframeWeight injects the per-timeframe interest weighting.
func WithTimeframeWeight(fn func(timeframe int) float64) Option {
	return func(f *Funnel) { f.weightFn = fn }
}

// New creates a Funnel emitting approved decisions to emit.
func New(cfg Config, balance float64, emit func(models.TradeDecision), opts ...Option) *Funnel {
	f := &Funnel{
		cfg:      cfg,
		behavior: NewBehavior(balance),
		weightFn: func(int) float64 { return 1 },
		emit:     emit,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit appends a signal to the current window's buffer, opening a
// window if none is pending.
func (f *Funnel) Submit(sig models.Signal) {
	f.mu.Lock()
	f.buf = append(f.buf, sig)
	open := !f.pending
	if open {
		f.pending = true
	}
	f.mu.Unlock()

	if open {
		time.AfterFunc(f.cfg.Window, f.expire)
	}
}

// RecordOutcome feeds a completed trade back into the behavioral state.
func (f *Funnel) RecordOutcome(o models.TradeOutcome) {
	f.mu.Lock()
	f.behavior.RecordOutcome(o.IsWin, o.Result.Profit)
	f.mu.Unlock()
}

// SetBalance applies a venue balance report.
func (f *Funnel) SetBalance(b models.Balance) {
	v := b.Demo
	if b.Live > 0 {
		v = b.Live
	}
	f.mu.Lock()
	f.behavior.SetBalance(v)
	f.mu.Unlock()
}

// Persona exposes the behavioral state for the ops API.
func (f *Funnel) Persona() Persona {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.behavior.Persona()
}

// expire closes the window: score the buffered signals, pick the best
// (ties go to the first seen), and emit one decision.
func (f *Funnel) expire() {
	f.mu.Lock()
	f.pending = false
	if len(f.buf) == 0 {
		f.mu.Unlock()
		return
	}

	best := 0
	bestScore := f.interestScore(f.buf[0])
	for i := 1; i < len(f.buf); i++ {
		if s := f.interestScore(f.buf[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	chosen := f.buf[best]
	discarded := len(f.buf) - 1
	f.buf = nil

	decision := models.TradeDecision{
		Asset:    chosen.Asset,
		Decision: chosen.Decision,
		Params:   f.executionParams(chosen),
		Signal:   chosen,
	}
	f.mu.Unlock()

	if f.logger != nil {
		f.logger.Info("decision window closed",
			applogger.String("asset", chosen.Asset),
			applogger.String("decision", string(chosen.Decision)),
			applogger.Int("discarded", discarded),
		)
	}
	if f.metrics != nil {
		f.metrics.RecordDecision(chosen.Asset)
	}
	if f.emit != nil {
		f.emit(decision)
	}
}

// interestScore ranks a signal by confidence, horizon weight, and the
// current behavioral bias. Caller holds the lock.
func (f *Funnel) interestScore(sig models.Signal) float64 {
	return sig.Confidence*f.weightFn(sig.Timeframe) + f.behavior.InterestBias()
}

// executionParams derives the order parameters for the chosen signal.
// Caller holds the lock.
func (f *Funnel) executionParams(sig models.Signal) models.ExecutionParams {
	inv := f.behavior.Balance() * f.cfg.BaseRiskPct * f.behavior.InvestmentMultiplier()
	if inv < f.cfg.MinInvestment {
		inv = f.cfg.MinInvestment
	}
	if inv > f.cfg.MaxInvestment {
		inv = f.cfg.MaxInvestment
	}

	delay := f.cfg.DelayMinMs
	if span := f.cfg.DelayMaxMs - f.cfg.DelayMinMs; span > 0 {
		delay += f.rng.Intn(span)
	}

	return models.ExecutionParams{
		DelayMs:    delay,
		Investment: inv,
		Expiration: domrepo.ExpirationForTimeframe(sig.Timeframe),
	}
}
