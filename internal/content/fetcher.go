package content

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tensorline/tensorline-backend/internal/db"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FetchOptions controls visibility for single-item reads.
type FetchOptions struct {
	// Preview includes unpublished drafts. Soft-deleted items stay hidden
	// regardless.
	Preview bool
}

// ListOptions controls list reads. Lists never expand relations.
type ListOptions struct {
	Preview   bool
	Filters   []db.Cond
	OrderBy   string
	OrderDesc bool
	Limit     int
}

// Fetcher reads content items together with their related items. Reads are
// tolerant: a broken edge or a failed relation query degrades to a partial
// result instead of an error.
type Fetcher struct {
	store  db.Store
	logger *zap.SugaredLogger
}

func NewFetcher(store db.Store, logger *zap.SugaredLogger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// FetchOne resolves an item by id when the identifier parses as a UUID,
// otherwise by slug. Returns (nil, nil) when the item does not exist, is
// soft-deleted, or the query itself fails: callers treat absence and
// transient failure the same way.
func (f *Fetcher) FetchOne(ctx context.Context, t Type, identifier string, opts FetchOptions) (*Item, error) {
	conds := []db.Cond{db.IsNull("deleted_at")}
	if _, err := uuid.Parse(identifier); err == nil {
		conds = append(conds, db.Eq("id", identifier))
	} else {
		conds = append(conds, db.Eq("slug", identifier))
	}
	if !opts.Preview {
		conds = append(conds, db.Eq("published", true))
	}

	row, err := db.SelectOne(ctx, f.store, TableFor(t), db.Query{Conds: conds})
	if err != nil {
		if err != db.ErrNotFound && f.logger != nil {
			f.logger.Errorw("Content lookup failed",
				"content_type", t, "identifier", identifier, "error", err)
		}
		return nil, nil
	}

	item := &Item{Fields: row, Relations: map[string][]db.Row{}}
	f.expandRelations(ctx, t, item)
	return item, nil
}

// expandRelations fetches each relationship kind concurrently. A failed kind
// yields an empty list for that kind only.
func (f *Fetcher) expandRelations(ctx context.Context, t Type, item *Item) {
	configs := RelationshipsFor(t)
	if len(configs) == 0 {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range configs {
		cfg := cfg
		g.Go(func() error {
			targets, err := f.fetchRelated(gctx, cfg, item.ID())
			if err != nil {
				if f.logger != nil {
					f.logger.Errorw("Relation expansion failed",
						"kind", cfg.Kind, "content_id", item.ID(), "error", err)
				}
				targets = []db.Row{}
			}
			mu.Lock()
			item.Relations[cfg.Kind] = targets
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// fetchRelated resolves one relationship kind: live junction rows first,
// then the target rows in one batched query. Edges whose target row is
// missing are dropped silently. Targets are not filtered by publish state;
// a draft related item still shows up on a published page.
func (f *Fetcher) fetchRelated(ctx context.Context, cfg RelationshipConfig, contentID string) ([]db.Row, error) {
	conds := []db.Cond{db.Eq(cfg.SourceField, contentID)}
	if cfg.TracksDeletes {
		conds = append(conds, db.IsNull("deleted_at"))
	}
	edges, err := f.store.Select(ctx, cfg.Junction, db.Query{Conds: conds})
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []db.Row{}, nil
	}

	ids := make([]any, 0, len(edges))
	for _, edge := range edges {
		if id := stringField(edge, cfg.TargetField); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []db.Row{}, nil
	}

	rows, err := f.store.Select(ctx, cfg.TargetTable, db.Query{Conds: []db.Cond{db.In("id", ids)}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]db.Row, len(rows))
	for _, row := range rows {
		byID[stringField(row, "id")] = row
	}

	// Junction order is the display order.
	out := make([]db.Row, 0, len(edges))
	for _, edge := range edges {
		if row, ok := byID[stringField(edge, cfg.TargetField)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// FetchList returns items of a type without relation expansion. Failures
// and empty results both come back as an empty slice.
func (f *Fetcher) FetchList(ctx context.Context, t Type, opts ListOptions) []Item {
	conds := append([]db.Cond{db.IsNull("deleted_at")}, opts.Filters...)
	if !opts.Preview {
		conds = append(conds, db.Eq("published", true))
	}

	q := db.Query{Conds: conds, Limit: opts.Limit}
	if opts.OrderBy != "" {
		q.Order = []db.Order{{Field: opts.OrderBy, Desc: opts.OrderDesc}}
	}

	rows, err := f.store.Select(ctx, TableFor(t), q)
	if err != nil {
		if f.logger != nil {
			f.logger.Errorw("Content list failed", "content_type", t, "error", err)
		}
		return []Item{}
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{Fields: row})
	}
	return items
}

// Scope memoizes FetchOne results for the duration of one request, so a
// page that references the same item several times hits the store once.
type Scope struct {
	fetcher *Fetcher

	mu    sync.Mutex
	items map[string]*Item
}

func (f *Fetcher) NewScope() *Scope {
	return &Scope{fetcher: f, items: map[string]*Item{}}
}

func (s *Scope) FetchOne(ctx context.Context, t Type, identifier string, opts FetchOptions) (*Item, error) {
	key := string(t) + "|" + identifier + "|"
	if opts.Preview {
		key += "p"
	}

	s.mu.Lock()
	if item, ok := s.items[key]; ok {
		s.mu.Unlock()
		return item, nil
	}
	s.mu.Unlock()

	item, err := s.fetcher.FetchOne(ctx, t, identifier, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return item, nil
}
