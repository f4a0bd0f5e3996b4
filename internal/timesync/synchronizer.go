package timesync

import (
	"sync"
	"time"
)

const defaultAlpha = 0.05

// Synchronizer estimates the offset between the local clock and the venue's
// clock from the timestamps carried on incoming ticks. It is an explicit
// component instance, passed to every consumer needing venue-relative time.
type Synchronizer struct {
	mu       sync.Mutex
	alpha    float64
	offsetMs float64
	lastMs   int64
	synced   bool
	nowFn    func() time.Time
}

// Option configures Synchronizer.
type Option func(*Synchronizer)

// WithAlpha sets the EMA smoothing factor.
func WithAlpha(a float64) Option {
	return func(s *Synchronizer) {
		if a > 0 && a <= 1 {
			s.alpha = a
		}
	}
}

// WithClock injects the local clock source. Used by tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Synchronizer) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// New creates a Synchronizer with the default smoothing factor.
func New(opts ...Option) *Synchronizer {
	s := &Synchronizer{
		alpha: defaultAlpha,
		nowFn: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update feeds one venue timestamp in milliseconds. Timestamps that do not
// advance past the last accepted value are ignored so duplicate or late
// ticks cannot regress the estimate. The first accepted sample sets the
// offset directly; later samples move it by EMA.
func (s *Synchronizer) Update(brokerMs int64) {
	if brokerMs <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if brokerMs <= s.lastMs {
		return
	}
	s.lastMs = brokerMs

	sample := float64(s.nowFn().UnixMilli() - brokerMs)
	if !s.synced {
		s.offsetMs = sample
		s.synced = true
		return
	}
	s.offsetMs = s.alpha*sample + (1-s.alpha)*s.offsetMs
}

// Now returns the estimated venue time.
func (s *Synchronizer) Now() time.Time {
	s.mu.Lock()
	off := s.offsetMs
	s.mu.Unlock()
	return s.nowFn().Add(-time.Duration(off * float64(time.Millisecond)))
}

// NowUnixMilli returns the estimated venue time in unix milliseconds.
func (s *Synchronizer) NowUnixMilli() int64 {
	return s.Now().UnixMilli()
}

// Offset returns the current offset estimate.
func (s *Synchronizer) Offset() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.offsetMs * float64(time.Millisecond))
}

// Synced reports whether at least one sample has been accepted.
func (s *Synchronizer) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}
