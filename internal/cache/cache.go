// Package cache implements the hybrid two-tier cache fronting content reads:
// a bounded in-process tier with insertion-order eviction and lazy TTL, plus
// an optional distributed tier behind the kv.Store abstraction. Caching is
// always best-effort; no operation here fails the caller's primary work.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tensorline/tensorline-backend/internal/metrics"
	"github.com/tensorline/tensorline-backend/pkg/kv"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrCacheMiss is returned when a key is absent or expired in every tier.
var ErrCacheMiss = errors.New("cache miss")

// Named TTL tiers. Plain durations, not distinct mechanisms.
const (
	TTLShort  = 60 * time.Second
	TTLMedium = 300 * time.Second
	TTLLong   = 3600 * time.Second // default when unspecified
	TTLDay    = 86400 * time.Second
	TTLWeek   = 604800 * time.Second
	TTLMonth  = 2592000 * time.Second
)

// DefaultMaxEntries bounds the in-process tier when no limit is configured.
const DefaultMaxEntries = 1000

// Stats reports tier sizes and whether the distributed tier is active.
type Stats struct {
	MemoryEntries     int  `json:"memory_entries"`
	MemoryMaxEntries  int  `json:"memory_max_entries"`
	DistributedActive bool `json:"distributed_active"`
}

// Options configures a Cache instance. Each instance owns its tiers; tests
// construct isolated instances rather than sharing globals.
type Options struct {
	MaxEntries int
	Remote     kv.Store // nil disables the distributed tier
	Logger     *zap.SugaredLogger
	Metrics    *metrics.Metrics
}

type Cache struct {
	memory  *memoryTier
	remote  kv.Store
	group   singleflight.Group
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func New(opts Options) *Cache {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		memory:  newMemoryTier(maxEntries),
		remote:  opts.Remote,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Get loads the value for key into dest. The distributed tier is consulted
// first when enabled; any remote failure silently degrades to the in-process
// tier. Returns ErrCacheMiss when no tier holds the key.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, ok := c.getBytes(ctx, key)
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(ctx, key)
		}
		return ErrCacheMiss
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) getBytes(ctx context.Context, key string) ([]byte, bool) {
	if c.remote != nil {
		data, err := c.remote.Get(ctx, key)
		if err == nil {
			return data, true
		}
		if !errors.Is(err, kv.ErrNotFound) && c.logger != nil {
			c.logger.Warnw("Distributed cache get failed; degrading to memory tier", "key", key, "error", err)
		}
	}
	return c.memory.get(key)
}

// Set writes the value to every enabled tier. The in-process write always
// succeeds (overflow evicts, never rejects); a distributed-tier failure is
// logged and absorbed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLLong
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	c.memory.set(key, data, ttl)

	if c.remote != nil {
		if err := c.remote.Set(ctx, key, data, ttl); err != nil && c.logger != nil {
			c.logger.Warnw("Distributed cache set failed", "key", key, "error", err)
		}
	}
	return nil
}

// Has reports whether any tier currently holds an unexpired value for key.
func (c *Cache) Has(ctx context.Context, key string) bool {
	if c.remote != nil {
		if ok, err := c.remote.Exists(ctx, key); err == nil && ok {
			return true
		}
	}
	return c.memory.has(key)
}

// Delete removes key from every tier.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.memory.delete(key)
	if c.remote != nil {
		if _, err := c.remote.Del(ctx, key); err != nil && c.logger != nil {
			c.logger.Warnw("Distributed cache delete failed", "key", key, "error", err)
		}
	}
}

// DeletePattern removes all keys matching a "*"-glob pattern and returns how
// many in-process entries were removed. Matching is a linear scan over held
// keys, no index.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	removed := c.memory.deletePattern(pattern)

	if c.remote != nil {
		keys, err := c.remote.Keys(ctx, pattern)
		if err != nil {
			if c.logger != nil {
				c.logger.Warnw("Distributed cache pattern scan failed", "pattern", pattern, "error", err)
			}
			return removed
		}
		if len(keys) > 0 {
			if _, err := c.remote.Del(ctx, keys...); err != nil && c.logger != nil {
				c.logger.Warnw("Distributed cache pattern delete failed", "pattern", pattern, "error", err)
			}
		}
	}
	return removed
}

// ClearMemory empties only the in-process tier. Test/ops use.
func (c *Cache) ClearMemory() {
	c.memory.clear()
}

// Stats reports tier sizes and whether the distributed tier is reachable.
func (c *Cache) Stats(ctx context.Context) Stats {
	active := false
	if c.remote != nil {
		active = c.remote.Ping(ctx) == nil
	}
	return Stats{
		MemoryEntries:     c.memory.size(),
		MemoryMaxEntries:  c.memory.maxSize,
		DistributedActive: active,
	}
}

// GetOrSet implements cache-aside: on a hit the fetcher is never invoked; on
// a miss the fetcher runs exactly once (concurrent callers for the same key
// share one flight), the result is stored, and dest is populated either way.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest any, fetch func(ctx context.Context) (any, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	data, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the key between our miss and now.
		if data, ok := c.getBytes(ctx, key); ok {
			return data, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache marshal error: %w", err)
		}

		ttlValue := ttl
		if ttlValue <= 0 {
			ttlValue = TTLLong
		}
		c.memory.set(key, encoded, ttlValue)
		if c.remote != nil {
			if err := c.remote.Set(ctx, key, encoded, ttlValue); err != nil && c.logger != nil {
				c.logger.Warnw("Distributed cache set failed", "key", key, "error", err)
			}
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data.([]byte), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Close releases the distributed tier, if any.
func (c *Cache) Close() error {
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}
