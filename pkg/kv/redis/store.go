// Package redis is a Redis-backed implementation of the kv.Store interface.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tensorline/tensorline-backend/pkg/kv"
)

// Store is a Redis-backed implementation of the kv.Store interface.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed store. addr accepts host:port or a
// redis:// URL.
func New(addr string) (*Store, error) {
	var opt *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 5,
		}
	}

	return &Store{client: redis.NewClient(opt)}, nil
}

// IsConnectionError checks if an error is a connection-level error that
// should trigger failover.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// redis.Nil means "key not found", not a connection problem.
	if errors.Is(err, redis.Nil) {
		return false
	}

	// Context cancellation by the caller should not trigger failover.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"timeout",
		"connection closed",
		"eof",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}

	return false
}

func (s *Store) wrapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", kv.ErrBackendUnavailable, err)
	}
	return err
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.wrapConnectionError(s.client.Set(ctx, key, value, ttl).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, s.wrapConnectionError(err)
	}
	return value, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	return n, s.wrapConnectionError(err)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.wrapConnectionError(err)
	}
	return n > 0, nil
}

// Keys lists matching keys via SCAN; Redis glob semantics are a superset of
// the "*"-only patterns this service uses.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := []string{}
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, s.wrapConnectionError(err)
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.wrapConnectionError(s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}
