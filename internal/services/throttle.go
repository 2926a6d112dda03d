// Package services – login throttling.
//
// This file implements a lightweight, in-memory, token-bucket throttle with
// per-identity buckets and opportunistic garbage collection, used to bound
// login attempts per (email, ip) pair. It is designed for simplicity, low
// overhead, and predictable behavior in a single-process deployment.
//
// Notes:
//   - The throttle is process-local. For horizontally scaled auth
//     deployments, prefer a distributed limiter to enforce global limits.
//   - This is abuse control for the credential-check path, not authorization.
package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// attempt holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle buckets.
type attempt struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginThrottle implements a per-key token-bucket limit on login attempts.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup during
// lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type LoginThrottle struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*attempt

	ttl      time.Duration
	cleanupN uint64
}

// NewLoginThrottle constructs a LoginThrottle replenishing rps attempts per
// second with the given burst. Values <= 0 for burst are coerced to 1.
func NewLoginThrottle(rps float64, burst int) *LoginThrottle {
	if burst <= 0 {
		burst = 1
	}
	return &LoginThrottle{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*attempt),
		ttl:     10 * time.Minute, // evict idle entries after TTL
	}
}

// Allow consumes one attempt for key and reports whether it was within
// budget. Denied attempts do not consume tokens.
func (lt *LoginThrottle) Allow(key string) bool {
	return lt.bucket(key).Allow()
}

// bucket returns (and updates) the limiter for key, creating it if absent.
// It also performs opportunistic GC of idle entries after ~5000 lookups.
//
// GC runs before the requested bucket is touched so an old bucket can be
// evicted even when it is the one being fetched.
func (lt *LoginThrottle) bucket(key string) *rate.Limiter {
	now := time.Now()

	lt.mu.Lock()
	lt.cleanupN++
	if lt.cleanupN >= 5000 {
		for k, b := range lt.buckets {
			if now.Sub(b.lastSeen) >= lt.ttl {
				delete(lt.buckets, k)
			}
		}
		lt.cleanupN = 0
	}

	if b, ok := lt.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		lt.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(lt.rps, lt.burst)
	lt.buckets[key] = &attempt{limiter: lim, lastSeen: now}
	lt.mu.Unlock()
	return lim
}
