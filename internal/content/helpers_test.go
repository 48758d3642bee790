package content

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tensorline/tensorline-backend/internal/db"
	"github.com/tensorline/tensorline-backend/internal/db/memory"
)

func seedItem(t *testing.T, store db.Store, table db.Table, slug string, published bool) string {
	t.Helper()
	id := uuid.NewString()
	err := store.Insert(context.Background(), table, []db.Row{{
		"id":        id,
		"slug":      slug,
		"title":     "Title " + slug,
		"published": published,
	}})
	require.NoError(t, err)
	return id
}

func seedEdge(t *testing.T, store db.Store, cfg RelationshipConfig, sourceID, targetID string) {
	t.Helper()
	err := store.Insert(context.Background(), cfg.Junction, []db.Row{{
		cfg.SourceField: sourceID,
		cfg.TargetField: targetID,
		"created_at":    time.Now().UTC(),
	}})
	require.NoError(t, err)
}

func edgeRows(t *testing.T, store db.Store, junction db.Table, field, id string) []db.Row {
	t.Helper()
	rows, err := store.Select(context.Background(), junction, db.Query{
		Conds: []db.Cond{db.Eq(field, id)},
	})
	require.NoError(t, err)
	return rows
}

func mustConfig(t *testing.T, typ Type, kind string) RelationshipConfig {
	t.Helper()
	cfg, ok := RelationshipFor(typ, kind)
	require.True(t, ok, "relationship %s for %s", kind, typ)
	return cfg
}

func newTestStore() *memory.Store {
	return memory.New()
}
