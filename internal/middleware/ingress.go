package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PipFlow/internal/domain/models"
	domrepo "PipFlow/internal/domain/repository"
	"PipFlow/internal/service/ratelimit"
)

// Submitter is the downstream the guard feeds, normally the tick pipeline.
type Submitter interface {
	Submit(ctx context.Context, t models.Tick) error
}

// IngressGuard sits between the harvester connection and the pipeline.
// It validates raw ticks, throttles per asset, and buffers briefly when
// the downstream refuses a tick, so a transient stall does not bubble
// back into the read loop.
type IngressGuard struct {
	next    Submitter
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan models.Tick
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	limiter *ratelimit.Limiter
}

type GuardOption func(*IngressGuard)

// WithMaxRPS caps accepted ticks per second per asset.
func WithMaxRPS(n int) GuardOption {
	return func(g *IngressGuard) {
		if n > 0 {
			g.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) GuardOption {
	return func(g *IngressGuard) {
		if n > 0 {
			g.bufSize = n
		}
	}
}

// NewIngressGuard creates a guard in front of next.
func NewIngressGuard(next Submitter, metrics domrepo.Metrics, opts ...GuardOption) *IngressGuard {
	g := &IngressGuard{
		next:    next,
		metrics: metrics,
		maxRPS:  200,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.bufCh = make(chan models.Tick, g.bufSize)
	if g.maxRPS > 0 {
		g.limiter = ratelimit.New(float64(g.maxRPS), float64(g.maxRPS))
	}
	return g
}

// Start launches background flushing of buffered ticks.
func (g *IngressGuard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-g.stopCh:
				return
			case t := <-g.bufCh:
				if err := g.next.Submit(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					g.recordError("ingress_flush")
					time.Sleep(backoff)
					select {
					case g.bufCh <- t:
					default:
						g.recordError("ingress_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts the background flusher.
func (g *IngressGuard) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	g.started = false
	g.mu.Unlock()
	close(g.stopCh)
}

// Submit validates and throttles one tick, then hands it downstream,
// buffering on refusal.
func (g *IngressGuard) Submit(ctx context.Context, t models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		g.recordError("ingress_validate")
		return err
	}
	if g.limiter != nil && !g.limiter.Allow(t.Asset) {
		g.recordError("ingress_throttle")
		return nil
	}

	if err := g.next.Submit(ctx, t); err != nil {
		g.recordError("ingress_submit")
		select {
		case g.bufCh <- t:
			g.recordLatency("ingress_buffer_depth", float64(len(g.bufCh)))
		default:
			g.recordError("ingress_buffer_full")
		}
		return fmt.Errorf("ingress downstream: %w", err)
	}
	g.recordLatency("ingress_submit", time.Since(start).Seconds())
	return nil
}

func validateTick(t models.Tick) error {
	if t.Asset == "" {
		return fmt.Errorf("asset empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price == 0 {
		return fmt.Errorf("price zero")
	}
	if t.SequenceID == 0 {
		return fmt.Errorf("sequence id zero")
	}
	return nil
}

func (g *IngressGuard) recordError(kind string) {
	if g.metrics != nil {
		g.metrics.RecordError(kind)
	}
}

func (g *IngressGuard) recordLatency(op string, v float64) {
	if g.metrics != nil {
		g.metrics.RecordLatency(op, v)
	}
}
