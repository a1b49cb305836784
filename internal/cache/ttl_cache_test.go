package cache

import (
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 42, time.Minute)

	got, ok := c.Get("a")
	if !ok || got != 42 {
		t.Fatalf("expected hit with 42, got %d ok=%v", got, ok)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	c.Invalidate("a")

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected invalidated entry to miss")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 7, 0)
	time.Sleep(time.Millisecond)

	if got, ok := c.Get("a"); !ok || got != 7 {
		t.Fatalf("expected persistent entry, got %d ok=%v", got, ok)
	}
}
