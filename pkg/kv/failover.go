package kv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LogFunc is a function type for structured logging.
type LogFunc func(msg string, fields ...any)

// FailoverStore wraps a primary and fallback store, automatically failing
// over when the primary becomes unavailable and recovering when it becomes
// healthy again.
type FailoverStore struct {
	primary       Store // usually Redis
	fallback      Store // usually in-memory
	active        atomic.Value
	probeInterval time.Duration
	logger        LogFunc

	mu        sync.Mutex
	probing   bool
	closed    chan struct{}
	probeStop chan struct{}
	probeDone chan struct{}
	promote   chan struct{}
}

// NewFailoverStore creates a failover store that prefers the primary but
// falls back to fallback on connection errors.
func NewFailoverStore(primary, fallback Store, probeInterval time.Duration, logger LogFunc) *FailoverStore {
	if logger == nil {
		logger = func(msg string, fields ...any) {}
	}

	fs := &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		probeInterval: probeInterval,
		logger:        logger,
		closed:        make(chan struct{}),
		promote:       make(chan struct{}, 1),
	}
	fs.active.Store(primary)

	go fs.handlePromotions()

	return fs
}

// NewFailoverStoreWithFallbackActive creates a failover store that starts
// with fallback active and probes primary for recovery (used when primary
// fails at startup).
func NewFailoverStoreWithFallbackActive(primary, fallback Store, probeInterval time.Duration, logger LogFunc) *FailoverStore {
	fs := NewFailoverStore(primary, fallback, probeInterval, logger)
	fs.active.Store(fallback)
	fs.startProbing()
	return fs
}

func (fs *FailoverStore) getActiveStore() Store {
	return fs.active.Load().(Store)
}

// demoteToFallback switches to the fallback store and starts background
// probing for recovery.
func (fs *FailoverStore) demoteToFallback() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.getActiveStore() == fs.fallback {
		return
	}

	fs.active.Store(fs.fallback)
	fs.logger("Failing over to in-memory store", "reason", "primary_unavailable")

	fs.startProbingUnsafe()
}

func (fs *FailoverStore) handlePromotions() {
	for {
		select {
		case <-fs.closed:
			return
		case <-fs.promote:
			if fs.getActiveStore() == fs.primary {
				continue
			}

			fs.active.Store(fs.primary)
			fs.logger("Recovered to primary store", "reason", "primary_healthy")

			fs.stopProbing()
		}
	}
}

func (fs *FailoverStore) signalPromotion() {
	select {
	case fs.promote <- struct{}{}:
	default: // promotion already pending
	}
}

func (fs *FailoverStore) startProbingUnsafe() {
	if fs.probing {
		return
	}

	fs.probing = true
	fs.probeStop = make(chan struct{})
	fs.probeDone = make(chan struct{})

	go fs.probeLoop()
}

func (fs *FailoverStore) startProbing() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.startProbingUnsafe()
}

func (fs *FailoverStore) stopProbing() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.stopProbingUnsafe()
}

func (fs *FailoverStore) stopProbingUnsafe() {
	if !fs.probing {
		return
	}

	close(fs.probeStop)
	<-fs.probeDone
	fs.probing = false
}

func (fs *FailoverStore) probeLoop() {
	defer close(fs.probeDone)

	ticker := time.NewTicker(fs.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fs.closed:
			return
		case <-fs.probeStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), fs.probeInterval/2)
			err := fs.primary.Ping(ctx)
			cancel()

			if err == nil {
				fs.signalPromotion()
				return // stop probing until next demotion
			}
		}
	}
}

// do executes fn on the active store; when the primary fails with a
// connection error it demotes to the fallback and retries once.
func (fs *FailoverStore) do(fn func(Store) error) error {
	store := fs.getActiveStore()
	err := fn(store)

	if store == fs.primary && errors.Is(err, ErrBackendUnavailable) {
		fs.demoteToFallback()

		if fallback := fs.getActiveStore(); fallback != store {
			return fn(fallback)
		}
	}

	return err
}

func (fs *FailoverStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return fs.do(func(s Store) error {
		return s.Set(ctx, key, value, ttl)
	})
}

func (fs *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := fs.do(func(s Store) error {
		var e error
		value, e = s.Get(ctx, key)
		return e
	})
	return value, err
}

func (fs *FailoverStore) Del(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := fs.do(func(s Store) error {
		var e error
		n, e = s.Del(ctx, keys...)
		return e
	})
	return n, err
}

func (fs *FailoverStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := fs.do(func(s Store) error {
		var e error
		ok, e = s.Exists(ctx, key)
		return e
	})
	return ok, err
}

func (fs *FailoverStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := fs.do(func(s Store) error {
		var e error
		keys, e = s.Keys(ctx, pattern)
		return e
	})
	return keys, err
}

func (fs *FailoverStore) Ping(ctx context.Context) error {
	return fs.getActiveStore().Ping(ctx)
}

func (fs *FailoverStore) Close() error {
	fs.mu.Lock()
	select {
	case <-fs.closed:
	default:
		close(fs.closed)
	}
	fs.stopProbingUnsafe()
	fs.mu.Unlock()

	err := fs.primary.Close()
	if fallbackErr := fs.fallback.Close(); err == nil {
		err = fallbackErr
	}
	return err
}
