package candles

import (
	"testing"

	"PipFlow/internal/domain/models"
)

func TestAggregationSameBucket(t *testing.T) {
	b := NewBuilder("EURUSD", 60, nil)
	b.AddTick(10, 100, false)
	b.AddTick(12, 100, false)
	b.AddTick(11, 100, false)

	c, ok := b.Current()
	if !ok {
		t.Fatalf("no open candle")
	}
	if c.Open != 10 || c.High != 12 || c.Low != 10 || c.Close != 11 || c.Volume != 3 {
		t.Fatalf("candle = %+v", c)
	}
	if c.Time != 60 {
		t.Fatalf("bucket = %d, want 60", c.Time)
	}
}

func TestCloseBoundary(t *testing.T) {
	var closed []models.Candle
	b := NewBuilder("EURUSD", 60, func(c models.Candle) { closed = append(closed, c) })
	b.AddTick(10, 100, false)
	b.AddTick(11, 119, false)
	b.AddTick(20, 121, false) // next bucket, closes previous

	if len(closed) != 1 {
		t.Fatalf("closed %d candles, want 1", len(closed))
	}
	if closed[0].Close != 11 || closed[0].Volume != 2 {
		t.Fatalf("closed candle = %+v", closed[0])
	}
	cur, ok := b.Current()
	if !ok || cur.Open != 20 || cur.Time != 120 {
		t.Fatalf("new candle = %+v ok=%v", cur, ok)
	}
}

func TestPrimingNeverCloses(t *testing.T) {
	var closed int
	b := NewBuilder("EURUSD", 60, func(models.Candle) { closed++ })
	b.AddTick(10, 100, true)
	b.AddTick(11, 200, true) // later bucket, but priming
	b.AddTick(12, 400, true)
	if closed != 0 {
		t.Fatalf("priming emitted %d closes", closed)
	}
	c, _ := b.Current()
	if c.Volume != 3 || c.Close != 12 {
		t.Fatalf("primed candle = %+v", c)
	}
}

func TestLiveUpdates(t *testing.T) {
	var live int
	b := NewBuilder("EURUSD", 60, nil)
	b.SetLiveFunc(func(models.Candle) { live++ })
	b.AddTick(10, 100, false)
	b.AddTick(11, 101, false)
	b.AddTick(12, 102, true) // priming suppresses live emission too
	if live != 2 {
		t.Fatalf("live emissions = %d, want 2", live)
	}
}

func TestSeedCurrentCandle(t *testing.T) {
	var closed []models.Candle
	b := NewBuilder("EURUSD", 60, func(c models.Candle) { closed = append(closed, c) })
	b.Seed(models.Candle{Open: 5, High: 9, Low: 4, Close: 8, Volume: 7, Time: 60})
	b.AddTick(10, 100, false) // same bucket, extends the seeded candle
	c, _ := b.Current()
	if c.Open != 5 || c.High != 10 || c.Volume != 8 {
		t.Fatalf("seeded candle = %+v", c)
	}
	b.AddTick(10, 121, false)
	if len(closed) != 1 || closed[0].Open != 5 {
		t.Fatalf("seeded candle close = %+v", closed)
	}
}

func TestBankLazyPerAssetTimeframes(t *testing.T) {
	var closed []models.Candle
	bk := NewBank([]int{60, 300}, func(c models.Candle) { closed = append(closed, c) }, nil)
	bk.Apply(models.Tick{Asset: "EURUSD", Price: 1, Timestamp: 100, SequenceID: 1}, false)
	bk.Apply(models.Tick{Asset: "EURUSD", Price: 2, Timestamp: 130, SequenceID: 2}, false)

	// 60s builder rolled over, 300s did not
	if len(closed) != 1 || closed[0].Timeframe != 60 {
		t.Fatalf("closed = %+v", closed)
	}
	if c, ok := bk.Current("EURUSD", 300); !ok || c.Volume != 2 {
		t.Fatalf("300s candle = %+v ok=%v", c, ok)
	}
}
