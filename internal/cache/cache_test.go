package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxEntries int) *Cache {
	return New(Options{MaxEntries: maxEntries})
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	require.NoError(t, c.Set(ctx, "k", "hello", TTLShort))

	var got string
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "hello", got)
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	var got string
	assert.ErrorIs(t, c.Get(ctx, "absent", &got), ErrCacheMiss)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))

	var got string
	require.NoError(t, c.Get(ctx, "k", &got))

	time.Sleep(40 * time.Millisecond)

	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	assert.False(t, c.Has(ctx, "k"))
}

func TestInsertionOrderEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), i, TTLLong))
	}

	// Read the oldest entry; insertion-order eviction must ignore access
	// recency.
	var got int
	require.NoError(t, c.Get(ctx, "key-0", &got))

	require.NoError(t, c.Set(ctx, "key-3", 3, TTLLong))

	assert.ErrorIs(t, c.Get(ctx, "key-0", &got), ErrCacheMiss)
	for i := 1; i <= 3; i++ {
		require.NoError(t, c.Get(ctx, fmt.Sprintf("key-%d", i), &got))
		assert.Equal(t, i, got)
	}
}

func TestResetRefreshesInsertionSlot(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(2)

	require.NoError(t, c.Set(ctx, "a", 1, TTLLong))
	require.NoError(t, c.Set(ctx, "b", 2, TTLLong))
	// Re-set "a": it moves to the back of the insertion queue.
	require.NoError(t, c.Set(ctx, "a", 10, TTLLong))
	require.NoError(t, c.Set(ctx, "c", 3, TTLLong))

	var got int
	assert.ErrorIs(t, c.Get(ctx, "b", &got), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "a", &got))
	assert.Equal(t, 10, got)
}

func TestFullCapacityScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(1000)

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), i, TTLLong))
	}
	require.NoError(t, c.Set(ctx, "key-new", "fresh", TTLLong))

	var gotInt int
	assert.ErrorIs(t, c.Get(ctx, "key-0", &gotInt), ErrCacheMiss)

	var gotStr string
	require.NoError(t, c.Get(ctx, "key-new", &gotStr))
	assert.Equal(t, "fresh", gotStr)

	assert.Equal(t, 1000, c.Stats(ctx).MemoryEntries)
}

func TestDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	require.NoError(t, c.Set(ctx, "user:1", 1, TTLLong))
	require.NoError(t, c.Set(ctx, "user:2", 2, TTLLong))
	require.NoError(t, c.Set(ctx, "content:1", 3, TTLLong))

	removed := c.DeletePattern(ctx, "user:*")
	assert.Equal(t, 2, removed)

	var got int
	assert.ErrorIs(t, c.Get(ctx, "user:1", &got), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "user:2", &got), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "content:1", &got))
	assert.Equal(t, 3, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	require.NoError(t, c.Set(ctx, "k", 1, TTLLong))
	c.Delete(ctx, "k")

	var got int
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestClearMemory(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	require.NoError(t, c.Set(ctx, "a", 1, TTLLong))
	require.NoError(t, c.Set(ctx, "b", 2, TTLLong))
	c.ClearMemory()

	assert.Equal(t, 0, c.Stats(ctx).MemoryEntries)
	assert.False(t, c.Stats(ctx).DistributedActive)
}

func TestGetOrSetFetchesOnce(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	var calls atomic.Int64
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "value", nil
	}

	var got string
	require.NoError(t, c.GetOrSet(ctx, "k", TTLLong, &got, fetch))
	assert.Equal(t, "value", got)

	got = ""
	require.NoError(t, c.GetOrSet(ctx, "k", TTLLong, &got, fetch))
	assert.Equal(t, "value", got)

	assert.Equal(t, int64(1), calls.Load())
}

func TestGetOrSetConcurrentSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	var calls atomic.Int64
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got int
			if assert.NoError(t, c.GetOrSet(ctx, "shared", TTLLong, &got, fetch)) {
				assert.Equal(t, 42, got)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}

func TestGetOrSetFetchError(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	fetchErr := fmt.Errorf("store unreachable")
	var got string
	err := c.GetOrSet(ctx, "k", TTLLong, &got, func(ctx context.Context) (any, error) {
		return "", fetchErr
	})
	require.ErrorIs(t, err, fetchErr)

	// Errors are not cached: the next call fetches again.
	require.NoError(t, c.GetOrSet(ctx, "k", TTLLong, &got, func(ctx context.Context) (any, error) {
		return "recovered", nil
	}))
	assert.Equal(t, "recovered", got)
}

func TestWrapMemoizesByDerivedKey(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)

	var calls atomic.Int64
	double := Wrap(c, TTLLong,
		func(n int) string { return fmt.Sprintf("double:%d", n) },
		func(ctx context.Context, n int) (int, error) {
			calls.Add(1)
			return n * 2, nil
		},
	)

	got, err := double(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = double(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, int64(1), calls.Load())

	got, err = double(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, got)
	assert.Equal(t, int64(2), calls.Load())
}

func TestConcurrentSetsKeepEvictionConsistent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = c.Set(ctx, fmt.Sprintf("g%d:k%d", g, i), i, TTLLong)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Stats(ctx).MemoryEntries)
}
