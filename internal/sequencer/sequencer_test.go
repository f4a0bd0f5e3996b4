package sequencer

import (
	"math/rand"
	"testing"

	"PipFlow/internal/domain/models"
)

func tick(asset string, id uint64) models.Tick {
	return models.Tick{Asset: asset, Price: 1.0, Timestamp: int64(id), SequenceID: id}
}

func TestInOrderPassThrough(t *testing.T) {
	var got []uint64
	s := New(func(tk models.Tick) { got = append(got, tk.SequenceID) })
	for i := uint64(1); i <= 5; i++ {
		s.Submit(tick("EURUSD", i))
	}
	if len(got) != 5 {
		t.Fatalf("forwarded %d ticks, want 5", len(got))
	}
	for i, id := range got {
		if id != uint64(i+1) {
			t.Fatalf("position %d got id %d", i, id)
		}
	}
}

func TestPermutationReordered(t *testing.T) {
	const n = 50
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	var got []uint64
	s := New(func(tk models.Tick) { got = append(got, tk.SequenceID) })
	for _, id := range ids {
		s.Submit(tick("EURUSD", id))
	}
	if len(got) != n {
		t.Fatalf("forwarded %d ticks, want %d", len(got), n)
	}
	for i, id := range got {
		if id != uint64(i+1) {
			t.Fatalf("position %d got id %d, want %d", i, id, i+1)
		}
	}
	if s.Buffered("EURUSD") != 0 {
		t.Fatalf("buffer not drained: %d left", s.Buffered("EURUSD"))
	}
}

func TestDuplicatesAndStaleDropped(t *testing.T) {
	var got []uint64
	s := New(func(tk models.Tick) { got = append(got, tk.SequenceID) })
	s.Submit(tick("EURUSD", 1))
	s.Submit(tick("EURUSD", 1)) // stale
	s.Submit(tick("EURUSD", 2))
	s.Submit(tick("EURUSD", 1)) // stale again
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func TestPerAssetIndependence(t *testing.T) {
	var got []string
	s := New(func(tk models.Tick) { got = append(got, tk.Asset) })
	s.Submit(tick("EURUSD", 1))
	s.Submit(tick("GBPUSD", 2)) // buffered, expected 1
	s.Submit(tick("GBPUSD", 1))
	if len(got) != 3 {
		t.Fatalf("forwarded %d, want 3", len(got))
	}
	if s.Expected("EURUSD") != 2 || s.Expected("GBPUSD") != 3 {
		t.Fatalf("expected counters wrong: %d %d", s.Expected("EURUSD"), s.Expected("GBPUSD"))
	}
}

func TestBufferCapEvictsLowest(t *testing.T) {
	var got []uint64
	s := New(func(tk models.Tick) { got = append(got, tk.SequenceID) }, WithMaxBuffer(3))
	// expected is 1, buffer 3..6 ahead of it
	for _, id := range []uint64{3, 4, 5, 6} {
		s.Submit(tick("EURUSD", id))
	}
	if n := s.Buffered("EURUSD"); n != 3 {
		t.Fatalf("buffered %d, want 3 after eviction", n)
	}
	// id 3 was evicted; releasing 1 and 2 drains only 4..6 after the gap at 3
	s.Submit(tick("EURUSD", 1))
	s.Submit(tick("EURUSD", 2))
	if len(got) != 2 {
		t.Fatalf("forwarded %d, want 2 (gap at 3 blocks drain)", len(got))
	}
	s.Submit(tick("EURUSD", 3))
	if len(got) != 6 {
		t.Fatalf("forwarded %d, want 6 after gap fill", len(got))
	}
}

func TestSequenceReset(t *testing.T) {
	var got []uint64
	s := New(func(tk models.Tick) { got = append(got, tk.SequenceID) }, WithResetGap(100))
	s.assets["EURUSD"] = &assetState{expected: 5000, pending: map[uint64]models.Tick{}}
	s.Submit(tick("EURUSD", 1))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("reset tick not forwarded: %v", got)
	}
	if s.Expected("EURUSD") != 2 {
		t.Fatalf("expected = %d after reset, want 2", s.Expected("EURUSD"))
	}
}
