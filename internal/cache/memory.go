package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// entry holds a cached value and its expiry instant.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are dropped lazily on read
// and swept during prefix invalidation; there is no background janitor.
//
// This store is process-local. For horizontally scaled deployments, use the
// Redis-backed store so all workers share one view of the cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is a clock seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// GetOrCompute implements Store.
//
// Concurrent misses for the same key may each run compute; the last writer
// wins. That is acceptable for this cache: compute is a read-only query and
// the entries converge.
func (m *Memory) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	now := m.now()

	m.mu.RLock()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		v := e.value
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[key] = entry{value: v, expiresAt: now.Add(ttl)}
	m.mu.Unlock()
	return v, nil
}

// InvalidatePrefix implements Store. Expired entries encountered during the
// sweep are removed as well.
func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) error {
	now := m.now()

	m.mu.Lock()
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) || !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}
