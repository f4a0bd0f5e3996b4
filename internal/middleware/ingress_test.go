package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"PipFlow/internal/domain/models"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	ticks []models.Tick
	fail  bool
}

func (f *fakeSubmitter) Submit(_ context.Context, t models.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("downstream unavailable")
	}
	f.ticks = append(f.ticks, t)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticks)
}

func (f *fakeSubmitter) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func validTick() models.Tick {
	return models.Tick{Asset: "EURUSD", Price: 108123, Timestamp: 1700000000, SequenceID: 1}
}

func TestValidTickPassesThrough(t *testing.T) {
	next := &fakeSubmitter{}
	g := NewIngressGuard(next, nil)
	if err := g.Submit(context.Background(), validTick()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if next.count() != 1 {
		t.Fatalf("downstream got %d ticks", next.count())
	}
}

func TestInvalidTicksRejected(t *testing.T) {
	next := &fakeSubmitter{}
	g := NewIngressGuard(next, nil)
	ctx := context.Background()

	bad := []models.Tick{
		{Price: 1, Timestamp: 1, SequenceID: 1},                   // no asset
		{Asset: "EURUSD", Price: 1, SequenceID: 1},                // no timestamp
		{Asset: "EURUSD", Timestamp: 1, SequenceID: 1},            // zero price
		{Asset: "EURUSD", Price: 1, Timestamp: 1},                 // zero sequence
	}
	for _, tk := range bad {
		if err := g.Submit(ctx, tk); err == nil {
			t.Fatalf("tick %+v accepted", tk)
		}
	}
	if next.count() != 0 {
		t.Fatalf("invalid ticks reached downstream")
	}
}

func TestThrottleDropsBurst(t *testing.T) {
	next := &fakeSubmitter{}
	g := NewIngressGuard(next, nil, WithMaxRPS(1))
	ctx := context.Background()

	tk := validTick()
	for i := 0; i < 5; i++ {
		tk.SequenceID = uint64(i + 1)
		if err := g.Submit(ctx, tk); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if next.count() != 1 {
		t.Fatalf("burst let %d ticks through, want 1", next.count())
	}
}

func TestThrottleIsPerAsset(t *testing.T) {
	next := &fakeSubmitter{}
	g := NewIngressGuard(next, nil, WithMaxRPS(1))
	ctx := context.Background()

	a := validTick()
	b := validTick()
	b.Asset = "GBPUSD"
	_ = g.Submit(ctx, a)
	_ = g.Submit(ctx, b)
	if next.count() != 2 {
		t.Fatalf("independent assets throttled together: %d", next.count())
	}
}

func TestBufferedRetryFlushes(t *testing.T) {
	next := &fakeSubmitter{fail: true}
	g := NewIngressGuard(next, nil)
	ctx := context.Background()

	if err := g.Submit(ctx, validTick()); err == nil {
		t.Fatalf("submit succeeded while downstream failing")
	}

	next.setFail(false)
	g.Start(ctx)
	defer g.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for next.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if next.count() != 1 {
		t.Fatalf("buffered tick never flushed")
	}
}
