package sequencer

import (
	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	applogger "PipFlow/pkg/logger"
)

const (
	defaultMaxBuffer = 512
	defaultResetGap  = 1000
)

// Sequencer reorders incoming ticks by monotonically increasing per-asset
// sequence numbers. Ticks ahead of expectation are buffered; stale or
// duplicate ids are dropped. It is owned by a single worker goroutine and
// is not safe for concurrent use.
type Sequencer struct {
	out       func(models.Tick)
	logger    *applogger.Logger
	metrics   domrepo.Metrics
	maxBuffer int
	resetGap  uint64
	assets    map[string]*assetState
}

type assetState struct {
	expected uint64
	pending  map[uint64]models.Tick
}

// Option configures Sequencer.
type Option func(*Sequencer)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(s *Sequencer) { s.metrics = m }
}

// WithMaxBuffer caps the per-asset ahead-buffer. When the cap is exceeded
// the lowest buffered id is evicted.
func WithMaxBuffer(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.maxBuffer = n
		}
	}
}

// WithResetGap sets the threshold past which an incoming id of 1 is treated
// as a feed restart rather than a stale duplicate.
func WithResetGap(n uint64) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.resetGap = n
		}
	}
}

// New creates a Sequencer forwarding in-order ticks to out.
func New(out func(models.Tick), opts ...Option) *Sequencer {
	s := &Sequencer{
		out:       out,
		maxBuffer: defaultMaxBuffer,
		resetGap:  defaultResetGap,
		assets:    make(map[string]*assetState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit accepts one tick in arrival order. Ticks are released to the
// output strictly in sequence-id order per asset.
func (s *Sequencer) Submit(t models.Tick) {
	st := s.assets[t.Asset]
	if st == nil {
		st = &assetState{expected: 1, pending: make(map[uint64]models.Tick)}
		s.assets[t.Asset] = st
	}

	// A sequence id snapping back to 1 after a large gap means the feed
	// restarted and renumbered; resync instead of dropping everything.
	if t.SequenceID == 1 && st.expected > s.resetGap {
		if s.logger != nil {
			s.logger.Warn("sequence reset detected",
				applogger.String("asset", t.Asset),
				applogger.Uint64("expected", st.expected),
			)
		}
		st.expected = 1
		st.pending = make(map[uint64]models.Tick)
	}

	switch {
	case t.SequenceID < st.expected:
		// duplicate or stale, drop
		s.dropped("stale")
	case t.SequenceID > st.expected:
		s.buffer(t.Asset, st, t)
	default:
		s.release(st, t)
	}
}

// Expected returns the next expected sequence id for an asset.
func (s *Sequencer) Expected(asset string) uint64 {
	if st := s.assets[asset]; st != nil {
		return st.expected
	}
	return 1
}

// Buffered returns the number of out-of-order ticks held for an asset.
func (s *Sequencer) Buffered(asset string) int {
	if st := s.assets[asset]; st != nil {
		return len(st.pending)
	}
	return 0
}

func (s *Sequencer) buffer(asset string, st *assetState, t models.Tick) {
	if _, ok := st.pending[t.SequenceID]; ok {
		s.dropped("duplicate")
		return
	}
	st.pending[t.SequenceID] = t
	if len(st.pending) > s.maxBuffer {
		s.evictLowest(asset, st)
	}
}

func (s *Sequencer) evictLowest(asset string, st *assetState) {
	var lowest uint64
	for id := range st.pending {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	delete(st.pending, lowest)
	s.dropped("buffer_full")
	if s.logger != nil {
		s.logger.Warn("sequencer buffer full, evicted lowest",
			applogger.String("asset", asset),
			applogger.Uint64("evicted", lowest),
			applogger.Uint64("expected", st.expected),
		)
	}
}

func (s *Sequencer) release(st *assetState, t models.Tick) {
	s.out(t)
	st.expected++

	// drain buffered ticks that are now in order
	for {
		next, ok := st.pending[st.expected]
		if !ok {
			return
		}
		delete(st.pending, st.expected)
		s.out(next)
		st.expected++
	}
}

func (s *Sequencer) dropped(kind string) {
	if s.metrics != nil {
		s.metrics.RecordDropped(kind)
	}
}
