package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a shared Redis instance, for deployments where
// multiple workers must observe the same cache and the same invalidations.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed store for the given address.
func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// NewRedisWithClient wraps an existing client (used by tests with miniredis
// or a fake; production code uses NewRedis).
func NewRedisWithClient(c *redis.Client) *Redis {
	return &Redis{client: c}
}

// GetOrCompute implements Store. Cache read failures other than a miss are
// not fatal: the value is recomputed so a degraded Redis never breaks reads.
func (r *Redis) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	v, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed SET only costs a recomputation later.
	r.client.Set(ctx, key, v, ttl)
	return v, nil
}

// InvalidatePrefix implements Store using SCAN + DEL. List results are keyed
// by (owner, page, limit, status) combinations, so invalidation is a pattern
// sweep over the owner's prefix rather than a single-key delete.
func (r *Redis) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Ping verifies connectivity; the tasks service calls it at startup so a
// misconfigured REDIS_ADDR fails fast instead of on the first request.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
