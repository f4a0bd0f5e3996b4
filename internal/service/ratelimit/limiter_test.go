package ratelimit

import (
	"testing"
	"time"
)

func TestBurstThenDeny(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, 1, WithClock(func() time.Time { return now }))

	if !l.Allow("EURUSD") || !l.Allow("EURUSD") {
		t.Fatalf("expected burst of 2 to pass")
	}
	if l.Allow("EURUSD") {
		t.Fatalf("expected third request to be denied")
	}
}

func TestRefillRestoresTokens(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 1, WithClock(func() time.Time { return now }))

	if !l.Allow("EURUSD") {
		t.Fatalf("first request should pass")
	}
	if l.Allow("EURUSD") {
		t.Fatalf("second immediate request should be denied")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("EURUSD") {
		t.Fatalf("request after refill should pass")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 1, WithClock(func() time.Time { return now }))

	if !l.Allow("EURUSD") {
		t.Fatalf("first asset should pass")
	}
	if !l.Allow("GBPUSD") {
		t.Fatalf("second asset should not share the first bucket")
	}
	if l.Allow("EURUSD") {
		t.Fatalf("exhausted bucket should deny")
	}
}
