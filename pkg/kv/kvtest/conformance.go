// Package kvtest provides a conformance suite shared by kv.Store backends.
package kvtest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorline/tensorline-backend/pkg/kv"
)

// Factory creates a fresh store for one test.
type Factory func(t *testing.T) kv.Store

// RunConformanceTests exercises every kv.Store operation against a backend.
func RunConformanceTests(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("SetGet", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k1", []byte("v1"), 0))

		value, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value)

		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k", []byte("old"), 0))
		require.NoError(t, s.Set(ctx, "k", []byte("new"), 0))

		value, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "short", []byte("v"), 20*time.Millisecond))

		_, err := s.Get(ctx, "short")
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)

		_, err = s.Get(ctx, "short")
		assert.ErrorIs(t, err, kv.ErrNotFound)

		ok, err := s.Exists(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Del", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

		n, err := s.Del(ctx, "a", "b", "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = s.Get(ctx, "a")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "present", []byte("v"), 0))

		ok, err := s.Exists(ctx, "present")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("KeysPattern", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "user:1", []byte("a"), 0))
		require.NoError(t, s.Set(ctx, "user:2", []byte("b"), 0))
		require.NoError(t, s.Set(ctx, "session:1", []byte("c"), 0))

		keys, err := s.Keys(ctx, "user:*")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"user:1", "user:2"}, keys)
	})

	t.Run("Ping", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		assert.NoError(t, s.Ping(ctx))
	})
}
