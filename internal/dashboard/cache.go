package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix     = "dashboard:"
	generationKey = keyPrefix + "version"
)

// Cache is a read-through Redis cache whose keys carry a generation number, so bumping
// the generation orphans every entry at once and TTLs reclaim them. Concurrent misses for
// the same key share one computation. A nil Cache, or one without a client, always computes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache returns a cache storing entries for ttl.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// generation returns the current generation, starting at 1.
func (c *Cache) generation(ctx context.Context) (int64, error) {
	if err := c.client.SetNX(ctx, generationKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return c.client.Get(ctx, generationKey).Int64()
}

// Invalidate moves to the next generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

// cached returns the value stored under name for the current generation, computing and
// storing it on a miss. Redis failures degrade to computing directly.
func cached[T any](ctx context.Context, c *Cache, name string, compute func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return compute(ctx)
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return compute(ctx)
	}
	key := keyPrefix + name + ":" + strconv.FormatInt(gen, 10)

	var out T
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	case !errors.Is(err, redis.Nil):
		return compute(ctx)
	}

	// The shared computation outlives the caller that started it.
	detached := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		fresh, err := compute(detached)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(fresh); err == nil {
			_ = c.client.Set(detached, key, payload, c.ttl).Err()
		}
		return fresh, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}
