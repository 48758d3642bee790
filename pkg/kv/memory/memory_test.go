package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tensorline/tensorline-backend/pkg/kv"
	"github.com/tensorline/tensorline-backend/pkg/kv/kvtest"
)

func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) kv.Store {
		return New(0) // disable janitor for deterministic tests
	}

	kvtest.RunConformanceTests(t, factory)
}

func TestMemoryStoreJanitor(t *testing.T) {
	store := New(10 * time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "test:janitor", []byte("v"), 20*time.Millisecond))

	_, err := store.Get(ctx, "test:janitor")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = store.Get(ctx, "test:janitor")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"user:*", "user:1", true},
		{"user:*", "users:1", false},
		{"*", "anything", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"content:*:draft", "content:case_studies:draft", true},
		{"content:*:draft", "content:case_studies:live", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXcYb", false},
	}

	for _, tc := range cases {
		t.Run(tc.pattern+"/"+tc.key, func(t *testing.T) {
			require.Equal(t, tc.want, kv.MatchPattern(tc.pattern, tc.key))
		})
	}
}
