// Package gateway implements the edge tier: admission control, token
// verification, and transparent forwarding to the upstream services.
//
// This file provides the fixed-window rate limiter used at admission. Each
// identity gets a counter bucketed into windows of fixed length; the counter
// resets when a new window begins. There is no backoff and no leaky bucket —
// a denied caller simply waits for the window to expire.
package gateway

import (
	"sync"
	"time"
)

// windowCount tracks one identity's counter within its current window.
type windowCount struct {
	windowStart time.Time
	n           int
}

// FixedWindow is a per-identity fixed-window rate limiter.
//
// Allow performs an atomic check-and-increment under a single lock, so
// concurrent callers for the same identity can never both slip past the
// ceiling. Stale counters are evicted opportunistically during lookups.
//
// This type is safe for concurrent use.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	counts map[string]*windowCount

	cleanupN uint64

	// now is a clock seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewFixedWindow constructs a limiter admitting limit requests per identity
// per window. Non-positive inputs are coerced to sane minimums.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
	}
}

// Allow consumes one admission for key and reports whether it was within the
// ceiling. When denied, retryAfter is the time remaining until the current
// window expires.
func (fw *FixedWindow) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := fw.clock()
	start := now.Truncate(fw.window)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.cleanupN++
	if fw.cleanupN >= 5000 {
		for k, c := range fw.counts {
			if c.windowStart.Before(start) {
				delete(fw.counts, k)
			}
		}
		fw.cleanupN = 0
	}

	c, ok := fw.counts[key]
	if !ok || c.windowStart.Before(start) {
		fw.counts[key] = &windowCount{windowStart: start, n: 1}
		return true, 0
	}

	if c.n >= fw.limit {
		return false, start.Add(fw.window).Sub(now)
	}
	c.n++
	return true, 0
}

func (fw *FixedWindow) clock() time.Time {
	if fw.now != nil {
		return fw.now()
	}
	return time.Now()
}
