package timesync

import (
	"testing"
	"time"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestFirstSampleSetsOffsetDirectly(t *testing.T) {
	s := New(WithClock(fixedClock(10_000)))
	s.Update(9_000) // venue is 1s behind local
	if got := s.Offset(); got != time.Second {
		t.Fatalf("offset = %v, want 1s", got)
	}
	if s.Now().UnixMilli() != 9_000 {
		t.Fatalf("now = %d, want 9000", s.Now().UnixMilli())
	}
}

func TestEMAUpdate(t *testing.T) {
	local := int64(10_000)
	s := New(WithAlpha(0.5), WithClock(func() time.Time { return time.UnixMilli(local) }))
	s.Update(9_000) // offset 1000
	local = 20_000
	s.Update(19_500) // sample 500, ema 0.5*500 + 0.5*1000 = 750
	if got := s.Offset(); got != 750*time.Millisecond {
		t.Fatalf("offset = %v, want 750ms", got)
	}
}

func TestMonotonicGuard(t *testing.T) {
	s := New(WithClock(fixedClock(10_000)))
	s.Update(9_000)
	before := s.Offset()
	s.Update(9_000) // duplicate
	s.Update(8_000) // late
	if got := s.Offset(); got != before {
		t.Fatalf("offset changed on non-advancing timestamp: %v -> %v", before, got)
	}
}

func TestIgnoresNonPositive(t *testing.T) {
	s := New(WithClock(fixedClock(10_000)))
	s.Update(0)
	s.Update(-5)
	if s.Synced() {
		t.Fatalf("expected unsynced after invalid samples")
	}
}
