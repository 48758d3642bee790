// Package kv abstracts the distributed cache tier behind a small key-value
// interface with pluggable backends and automatic failover to memory when
// the remote backend is unavailable.
package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("not found")

// ErrBackendUnavailable is returned when the backend storage is unavailable.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Store defines the operations the cache facade issues against a tier.
type Store interface {
	// Set writes a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Del removes keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists keys matching a glob pattern ("*" wildcard only).
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error

	Close() error
}

// MatchPattern reports whether key matches a glob pattern where "*" matches
// any run of characters. The match is anchored at both ends; no other
// metacharacters are recognized.
func MatchPattern(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return key == pattern
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	last := parts[len(parts)-1]
	middle := parts[1 : len(parts)-1]

	for _, part := range middle {
		if part == "" {
			continue
		}
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}

	return strings.HasSuffix(key, last)
}
