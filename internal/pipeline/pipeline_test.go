package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"PipFlow/internal/candles"
	"PipFlow/internal/domain/models"
	"PipFlow/internal/timesync"
)

type captureEngine struct {
	mu     sync.Mutex
	closes []models.Candle
	lives  []models.Candle
	primed []models.Candle
}

func (e *captureEngine) OnCandleClose(c models.Candle) {
	e.mu.Lock()
	e.closes = append(e.closes, c)
	e.mu.Unlock()
}

func (e *captureEngine) OnLiveCandle(c models.Candle) {
	e.mu.Lock()
	e.lives = append(e.lives, c)
	e.mu.Unlock()
}

func (e *captureEngine) PrimeHistory(_ int, history []models.Candle) {
	e.mu.Lock()
	e.primed = append(e.primed, history...)
	e.mu.Unlock()
}

func (e *captureEngine) snapshot() (closes, lives, primed []models.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Candle{}, e.closes...),
		append([]models.Candle{}, e.lives...),
		append([]models.Candle{}, e.primed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *captureEngine) {
	t.Helper()
	eng := &captureEngine{}
	p := New(cfg, timesync.New(), func(string) candles.Engine { return eng })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})
	return p, eng
}

func TestTicksFlowToEngine(t *testing.T) {
	p, eng := newTestPipeline(t, Config{Timeframes: []int{60}})
	ctx := context.Background()

	// three ticks in the first bucket, one in the next to force a close
	ticks := []models.Tick{
		{Asset: "EURUSD", Price: 10, Timestamp: 100, SequenceID: 1},
		{Asset: "EURUSD", Price: 12, Timestamp: 110, SequenceID: 2},
		{Asset: "EURUSD", Price: 11, Timestamp: 119, SequenceID: 3},
		{Asset: "EURUSD", Price: 13, Timestamp: 121, SequenceID: 4},
	}
	for _, tk := range ticks {
		if err := p.Submit(ctx, tk); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	waitFor(t, func() bool {
		closes, _, _ := eng.snapshot()
		return len(closes) == 1
	})
	closes, _, _ := eng.snapshot()
	c := closes[0]
	if c.Open != 10 || c.High != 12 || c.Low != 10 || c.Close != 11 || c.Volume != 3 {
		t.Fatalf("closed candle = %+v", c)
	}
	if c.Time != 60 {
		t.Fatalf("bucket = %d, want 60", c.Time)
	}
}

func TestOutOfOrderTicksReordered(t *testing.T) {
	p, eng := newTestPipeline(t, Config{Timeframes: []int{60}})
	ctx := context.Background()

	for _, tk := range []models.Tick{
		{Asset: "EURUSD", Price: 10, Timestamp: 100, SequenceID: 1},
		{Asset: "EURUSD", Price: 11, Timestamp: 119, SequenceID: 3},
		{Asset: "EURUSD", Price: 12, Timestamp: 110, SequenceID: 2},
		{Asset: "EURUSD", Price: 13, Timestamp: 121, SequenceID: 4},
	} {
		if err := p.Submit(ctx, tk); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	waitFor(t, func() bool {
		closes, _, _ := eng.snapshot()
		return len(closes) == 1
	})
	closes, _, _ := eng.snapshot()
	if closes[0].Close != 11 {
		t.Fatalf("close = %v, want 11 from the reordered last tick", closes[0].Close)
	}
}

func TestLiveUpdatesDelivered(t *testing.T) {
	p, eng := newTestPipeline(t, Config{Timeframes: []int{60}, LiveUpdates: true})
	ctx := context.Background()

	_ = p.Submit(ctx, models.Tick{Asset: "EURUSD", Price: 10, Timestamp: 100, SequenceID: 1})
	_ = p.Submit(ctx, models.Tick{Asset: "EURUSD", Price: 12, Timestamp: 110, SequenceID: 2})

	waitFor(t, func() bool {
		_, lives, _ := eng.snapshot()
		return len(lives) >= 2
	})
}

func TestPrimeIndicatorsReachesEngine(t *testing.T) {
	p, eng := newTestPipeline(t, Config{Timeframes: []int{60}})

	history := []models.Candle{
		{Asset: "EURUSD", Timeframe: 60, Close: 10, Time: 0},
		{Asset: "EURUSD", Timeframe: 60, Close: 11, Time: 60},
	}
	p.PrimeIndicators("EURUSD", 60, history)

	waitFor(t, func() bool {
		_, _, primed := eng.snapshot()
		return len(primed) == 2
	})
}

func TestPrimeCurrentCandleSeedsBuilder(t *testing.T) {
	p, eng := newTestPipeline(t, Config{Timeframes: []int{60}})
	ctx := context.Background()

	p.PrimeCurrentCandle("EURUSD", 60, models.Candle{
		Open: 10, High: 15, Low: 9, Close: 12, Volume: 7, Time: 60,
	})
	// a tick in the next bucket closes the seeded candle
	_ = p.Submit(ctx, models.Tick{Asset: "EURUSD", Price: 13, Timestamp: 121, SequenceID: 1})

	waitFor(t, func() bool {
		closes, _, _ := eng.snapshot()
		return len(closes) == 1
	})
	closes, _, _ := eng.snapshot()
	c := closes[0]
	if c.High != 15 || c.Low != 9 || c.Volume != 7 {
		t.Fatalf("seeded candle lost history: %+v", c)
	}
}

func TestSubmitAfterStopRejected(t *testing.T) {
	eng := &captureEngine{}
	p := New(Config{Timeframes: []int{60}}, timesync.New(), func(string) candles.Engine { return eng })
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := p.Submit(ctx, models.Tick{Asset: "EURUSD", Price: 1, Timestamp: 1, SequenceID: 1}); err == nil {
		t.Fatalf("submit after stop succeeded")
	}
}
