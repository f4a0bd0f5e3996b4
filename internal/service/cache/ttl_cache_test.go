package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(b) != "v" {
		t.Fatalf("got %q, want v", b)
	}
}

func TestExpiredEntryIsGone(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", []byte("v"), time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry still present")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", []byte("v"), 0)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry with zero ttl missing")
	}
}
