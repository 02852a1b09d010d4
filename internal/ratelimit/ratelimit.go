// Package ratelimit provides a concurrency-safe fixed-window counter keyed
// by string (an actor, an address, a route). It is the same
// count-over-rolling-window primitive family the anomaly detector uses, but
// held in memory for hot paths like login throttling.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts hits per key within fixed windows of the configured size.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	windowStart time.Time
	count       int
}

// New creates a limiter allowing limit hits per key per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[key] = &bucket{windowStart: now, count: 1}
		return true
	}

	b.count++

	return b.count <= l.limit
}

// Reset clears the counter for key (e.g. after a successful login).
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
}

// Sweep drops buckets whose window has passed. Call it periodically to keep
// memory bounded under many distinct keys.
func (l *Limiter) Sweep() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, key)
		}
	}
}
