package rate

import (
	"testing"
	"time"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	for i := 0; i < 100; i++ {
		if !l.Allow("anyone") {
			t.Fatal("nil limiter must allow")
		}
	}
	l.Cleanup() // must not panic
}

func TestNewDisabledForZeroRate(t *testing.T) {
	if New(0, 5) != nil {
		t.Fatal("rps 0 must disable limiting")
	}
	if New(-1, 5) != nil {
		t.Fatal("negative rps must disable limiting")
	}
}

func TestBurstThenLimit(t *testing.T) {
	l := New(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst must pass", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request past the burst must be limited")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1)

	if !l.Allow("a") {
		t.Fatal("first request for a must pass")
	}
	if !l.Allow("b") {
		t.Fatal("a's bucket must not affect b")
	}
	if l.Allow("a") {
		t.Fatal("a's second request must be limited")
	}
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	l := New(1, 1, WithIdleTTL(time.Nanosecond))

	l.Allow("a")
	l.Allow("b")
	time.Sleep(time.Millisecond)
	l.Cleanup()

	l.mu.Lock()
	n := len(l.entries)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("idle buckets must be dropped, %d left", n)
	}
}
