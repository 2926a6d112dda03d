// Package cache provides the read-through cache used by the tasks service for
// list queries. Values are opaque byte slices (serialized pages) stored under
// owner-scoped keys with a short TTL; writes invalidate every key sharing the
// owner's prefix so a reader always observes its own just-completed write.
//
// Two implementations share one contract: a Redis-backed store for
// deployments where multiple workers must see the same cache, and an
// in-memory store for single-process setups and tests.
package cache

import (
	"context"
	"time"
)

// Store is the read-through cache contract.
//
// GetOrCompute returns the cached value for key when present and fresh;
// otherwise it invokes compute, stores the result with the given TTL, and
// returns it. Implementations must be safe for concurrent use.
//
// InvalidatePrefix removes every entry whose key starts with prefix. It is
// called on the write path before the write response is returned, so later
// reads cannot serve a page older than the write.
type Store interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error)
	InvalidatePrefix(ctx context.Context, prefix string) error
}
