package content

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensorline/tensorline-backend/internal/db"
)

// countingStore counts Select calls per table so tests can assert on query
// volume.
type countingStore struct {
	db.Store
	selects atomic.Int64
}

func (s *countingStore) Select(ctx context.Context, table db.Table, q db.Query) ([]db.Row, error) {
	s.selects.Add(1)
	return s.Store.Select(ctx, table, q)
}

func TestFetchOneBySlugExpandsRelations(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	caseStudyID := seedItem(t, store, TableCaseStudies, "cs-fetch", true)
	industryCfg := mustConfig(t, TypeCaseStudy, "industries")
	algoCfg := mustConfig(t, TypeCaseStudy, "algorithms")
	indID := seedItem(t, store, TableIndustries, "ind-fetch", true)
	algoID := seedItem(t, store, TableAlgorithms, "algo-fetch", true)
	seedEdge(t, store, industryCfg, caseStudyID, indID)
	seedEdge(t, store, algoCfg, caseStudyID, algoID)

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-fetch", FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, caseStudyID, item.ID())

	require.Len(t, item.Relations["industries"], 1)
	require.Equal(t, indID, stringField(item.Relations["industries"][0], "id"))
	require.Len(t, item.Relations["algorithms"], 1)
	// Personas has no edges but the kind is still present.
	require.NotNil(t, item.Relations["personas"])
	require.Empty(t, item.Relations["personas"])
}

func TestFetchOneByID(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)

	id := seedItem(t, store, TableIndustries, "ind-by-id", true)
	item, err := fetcher.FetchOne(context.Background(), TypeIndustry, id, FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "ind-by-id", item.Slug())
}

func TestFetchOneHidesDraftsUnlessPreview(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	seedItem(t, store, TableCaseStudies, "cs-draft", false)

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-draft", FetchOptions{})
	require.NoError(t, err)
	require.Nil(t, item)

	item, err = fetcher.FetchOne(ctx, TypeCaseStudy, "cs-draft", FetchOptions{Preview: true})
	require.NoError(t, err)
	require.NotNil(t, item)
	require.False(t, item.Published())
}

func TestFetchOneHidesSoftDeletedEvenInPreview(t *testing.T) {
	store := newTestStore()
	lc := newLifecycle(store, nil)
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	id := seedItem(t, store, TableCaseStudies, "cs-gone", true)
	require.NoError(t, lc.SoftDelete(ctx, TypeCaseStudy, id, "editor@example.com"))

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-gone", FetchOptions{Preview: true})
	require.NoError(t, err)
	require.Nil(t, item)
}

func TestFetchOneDropsBrokenEdges(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	caseStudyID := seedItem(t, store, TableCaseStudies, "cs-broken", true)
	cfg := mustConfig(t, TypeCaseStudy, "industries")
	realID := seedItem(t, store, TableIndustries, "ind-real", true)
	seedEdge(t, store, cfg, caseStudyID, realID)
	// Edge whose target row is missing.
	seedEdge(t, store, cfg, caseStudyID, "00000000-0000-0000-0000-000000000000")

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-broken", FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Len(t, item.Relations["industries"], 1)
	require.Equal(t, realID, stringField(item.Relations["industries"][0], "id"))
}

func TestFetchOneIncludesDraftRelatedItems(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	caseStudyID := seedItem(t, store, TableCaseStudies, "cs-draft-rel", true)
	cfg := mustConfig(t, TypeCaseStudy, "algorithms")
	draftAlgo := seedItem(t, store, TableAlgorithms, "algo-draft", false)
	seedEdge(t, store, cfg, caseStudyID, draftAlgo)

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-draft-rel", FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, item)
	// Related items are not filtered by publish state.
	require.Len(t, item.Relations["algorithms"], 1)
}

func TestFetchOneSkipsSoftDeletedEdges(t *testing.T) {
	store := newTestStore()
	lc := newLifecycle(store, nil)
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	caseStudyID := seedItem(t, store, TableCaseStudies, "cs-edges", true)
	cfg := mustConfig(t, TypeCaseStudy, "industries")
	indID := seedItem(t, store, TableIndustries, "ind-edges", true)
	seedEdge(t, store, cfg, caseStudyID, indID)

	// Deleting and restoring the industry clears its edges' deleted_at, but
	// deleting just the industry stamps the shared junction rows.
	require.NoError(t, lc.SoftDelete(ctx, TypeIndustry, indID, "editor@example.com"))
	_, err := lc.Restore(ctx, TypeIndustry, indID, "editor@example.com")
	require.NoError(t, err)

	item, err := fetcher.FetchOne(ctx, TypeCaseStudy, "cs-edges", FetchOptions{})
	require.NoError(t, err)
	require.Len(t, item.Relations["industries"], 1)

	require.NoError(t, lc.SoftDelete(ctx, TypeIndustry, indID, "editor@example.com"))
	item, err = fetcher.FetchOne(ctx, TypeCaseStudy, "cs-edges", FetchOptions{})
	require.NoError(t, err)
	require.Empty(t, item.Relations["industries"])
}

func TestFetchListFiltersAndOrders(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	seedItem(t, store, TableAlgorithms, "b-algo", true)
	seedItem(t, store, TableAlgorithms, "a-algo", true)
	seedItem(t, store, TableAlgorithms, "c-draft", false)

	items := fetcher.FetchList(ctx, TypeAlgorithm, ListOptions{OrderBy: "slug"})
	require.Len(t, items, 2)
	require.Equal(t, "a-algo", items[0].Slug())
	require.Equal(t, "b-algo", items[1].Slug())

	items = fetcher.FetchList(ctx, TypeAlgorithm, ListOptions{Preview: true})
	require.Len(t, items, 3)
}

func TestFetchListEmptyOnUnknownType(t *testing.T) {
	store := newTestStore()
	fetcher := NewFetcher(store, nil)

	items := fetcher.FetchList(context.Background(), TypePersona, ListOptions{})
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestScopeMemoizesFetches(t *testing.T) {
	inner := newTestStore()
	store := &countingStore{Store: inner}
	fetcher := NewFetcher(store, nil)
	ctx := context.Background()

	seedItem(t, inner, TableIndustries, "ind-scope", true)
	scope := fetcher.NewScope()

	first, err := scope.FetchOne(ctx, TypeIndustry, "ind-scope", FetchOptions{})
	require.NoError(t, err)
	require.NotNil(t, first)
	after := store.selects.Load()

	second, err := scope.FetchOne(ctx, TypeIndustry, "ind-scope", FetchOptions{})
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, after, store.selects.Load(), "memoized fetch must not query the store")

	// A different preview flag is a different cache entry.
	_, err = scope.FetchOne(ctx, TypeIndustry, "ind-scope", FetchOptions{Preview: true})
	require.NoError(t, err)
	require.Greater(t, store.selects.Load(), after)
}
