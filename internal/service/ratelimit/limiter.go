package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Each key gets its own bucket with the
// shared capacity and refill rate, so one noisy asset cannot starve the
// others.
type Limiter struct {
	capacity float64
	refill   float64 // tokens per second
	nowFn    func() time.Time

	mu sync.Mutex
	m  map[string]*bucket
}

// Option configures Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(l *Limiter) { l.nowFn = fn }
}

// New creates a limiter allowing bursts of capacity tokens refilled at
// refillPerSec.
func New(capacity, refillPerSec float64, opts ...Option) *Limiter {
	l := &Limiter{
		capacity: capacity,
		refill:   refillPerSec,
		nowFn:    time.Now,
		m:        make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) bool {
	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
