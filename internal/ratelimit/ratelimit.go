// Package ratelimit bounds outbound provider calls to a quota per
// trailing time window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most max calls in any sliding window of the given
// duration. Acquire blocks until admission is safe; it never fails.
type Limiter struct {
	max    int
	window time.Duration

	mu         sync.Mutex
	admissions []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Limiter with the real clock.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// NewWithClock creates a Limiter with an injected clock, for tests.
func NewWithClock(max int, window time.Duration, now func() time.Time, sleep func(time.Duration)) *Limiter {
	return &Limiter{max: max, window: window, now: now, sleep: sleep}
}

// Acquire blocks the caller until one more admission fits the window,
// then records it.
func (l *Limiter) Acquire() {
	for {
		l.mu.Lock()
		now := l.now()
		l.evict(now)
		if len(l.admissions) < l.max {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return
		}
		// Oldest admission leaves the window first; wait it out without
		// holding the lock.
		wait := l.window - now.Sub(l.admissions[0])
		l.mu.Unlock()
		if wait > 0 {
			l.sleep(wait)
		}
	}
}

// evict drops admissions older than the window. Caller holds the lock.
func (l *Limiter) evict(now time.Time) {
	cut := 0
	for cut < len(l.admissions) && now.Sub(l.admissions[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.admissions = append(l.admissions[:0], l.admissions[cut:]...)
	}
}
