// Package memory is an in-memory implementation of the kv.Store interface.
// It serves as the failover target when Redis is unavailable and as the
// distributed-tier stand-in for tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tensorline/tensorline-backend/pkg/kv"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an in-memory implementation of kv.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
}

// New creates a new in-memory store. A positive janitorInterval starts a
// background goroutine that evicts expired keys; expiry is also checked
// lazily on every read regardless.
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		entries:         make(map[string]entry),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return nil, kv.ErrNotFound
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil, kv.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for _, key := range keys {
		if e, exists := s.entries[key]; exists {
			if !e.expired(now) {
				deleted++
			}
			delete(s.entries, key)
		}
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return false, nil
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	keys := []string{}
	for key, e := range s.entries {
		if e.expired(now) {
			continue
		}
		if kv.MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Ping always returns nil for the in-memory store.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the background janitor and clears all data.
func (s *Store) Close() error {
	if s.janitorInterval > 0 {
		select {
		case <-s.janitorStop:
		default:
			close(s.janitorStop)
		}
		<-s.janitorDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return nil
}
