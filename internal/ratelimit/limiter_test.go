package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestLimiterBlocksOverLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewWithClock(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("fourth request in the window should be blocked")
	}
}

func TestLimiterWindowReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewWithClock(1, time.Minute, clock)

	if !l.Allow("1.2.3.4") {
		t.Fatalf("first request should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("second request should be blocked")
	}

	clock.Advance(time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Fatalf("request after window reset should be allowed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewWithClock(1, time.Minute, clock)

	if !l.Allow("1.2.3.4") {
		t.Fatalf("first key should be allowed")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatalf("second key should have its own window")
	}
}
