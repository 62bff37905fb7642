// Package ratelimit provides a sliding-window call throttle for live broker
// adapters. The simulated core never calls it; transports talking to real
// endpoints do, potentially from multiple goroutines.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter throttles calls per endpoint: at most maxCalls within any sliding
// window of the configured duration. Wait blocks until the oldest call in
// the window expires.
type Limiter struct {
	maxCalls int
	window   time.Duration

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.Mutex
	calls map[string][]time.Time
}

func NewLimiter(maxCalls int, window time.Duration) *Limiter {
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
		sleep:    time.Sleep,
		calls:    make(map[string][]time.Time),
	}
}

// NewLimiterWithClock builds a limiter with an injected clock and sleep
// function. Tests use this to avoid real waiting.
func NewLimiterWithClock(maxCalls int, window time.Duration, now func() time.Time, sleep func(time.Duration)) *Limiter {
	limiter := NewLimiter(maxCalls, window)
	limiter.now = now
	limiter.sleep = sleep

	return limiter
}

// Wait blocks until a call to the endpoint is allowed, then records it.
func (l *Limiter) Wait(endpoint string) {
	for {
		l.mu.Lock()

		now := l.now()
		recent := pruneExpired(l.calls[endpoint], now, l.window)

		if len(recent) < l.maxCalls {
			l.calls[endpoint] = append(recent, now)
			l.mu.Unlock()

			return
		}

		// Sleep until the oldest call leaves the window, then re-check.
		wait := l.window - now.Sub(recent[0])
		l.calls[endpoint] = recent
		l.mu.Unlock()

		l.sleep(wait)
	}
}

// Allow reports whether a call would be admitted right now and records it
// if so. It never blocks.
func (l *Limiter) Allow(endpoint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneExpired(l.calls[endpoint], now, l.window)

	if len(recent) >= l.maxCalls {
		l.calls[endpoint] = recent

		return false
	}

	l.calls[endpoint] = append(recent, now)

	return true
}

func pruneExpired(calls []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)

	kept := calls[:0]
	for _, call := range calls {
		if call.After(cutoff) {
			kept = append(kept, call)
		}
	}

	return kept
}
