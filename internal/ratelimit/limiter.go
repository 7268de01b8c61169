// Package ratelimit implements a fixed-window request limiter. It is an
// injected store with its own lifecycle, not process-wide state, so tests
// and concurrent servers stay independent.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type window struct {
	start    time.Time
	requests int
}

type Limiter struct {
	clock  clockwork.Clock
	max    int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

func New(max int, period time.Duration) *Limiter {
	return NewWithClock(max, period, clockwork.NewRealClock())
}

func NewWithClock(max int, period time.Duration, clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:   clock,
		max:     max,
		period:  period,
		windows: map[string]*window{},
	}
}

// Allow records one request for key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, requests: 1}
		return true
	}
	if w.requests >= l.max {
		return false
	}
	w.requests++
	return true
}
