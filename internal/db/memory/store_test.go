package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tensorline/tensorline-backend/internal/db"
)

const table db.Table = "widgets"

func seed(t *testing.T, s *Store, rows ...db.Row) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), table, rows))
}

func TestInsertFillsIDAndCreatedAt(t *testing.T) {
	s := New()
	seed(t, s, db.Row{"name": "a"})

	rows, err := s.Select(context.Background(), table, db.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotEmpty(t, rows[0]["id"])
	require.IsType(t, time.Time{}, rows[0]["created_at"])
}

func TestSelectPredicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s,
		db.Row{"id": "1", "kind": "a", "deleted_at": nil},
		db.Row{"id": "2", "kind": "a", "deleted_at": time.Now()},
		db.Row{"id": "3", "kind": "b"},
	)

	rows, err := s.Select(ctx, table, db.Query{Conds: []db.Cond{db.Eq("kind", "a")}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = s.Select(ctx, table, db.Query{Conds: []db.Cond{db.IsNull("deleted_at")}})
	require.NoError(t, err)
	require.Len(t, rows, 2) // explicit nil and absent both count

	rows, err = s.Select(ctx, table, db.Query{Conds: []db.Cond{db.NotNull("deleted_at")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "2", rows[0]["id"])

	rows, err = s.Select(ctx, table, db.Query{Conds: []db.Cond{db.In("id", []any{"1", "3"})}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestSelectOrderLimitOffset(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s,
		db.Row{"id": "1", "rank": 3},
		db.Row{"id": "2", "rank": 1},
		db.Row{"id": "3", "rank": 2},
	)

	rows, err := s.Select(ctx, table, db.Query{Order: []db.Order{{Field: "rank"}}})
	require.NoError(t, err)
	require.Equal(t, "2", rows[0]["id"])
	require.Equal(t, "1", rows[2]["id"])

	rows, err = s.Select(ctx, table, db.Query{
		Order:  []db.Order{{Field: "rank", Desc: true}},
		Limit:  1,
		Offset: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "3", rows[0]["id"])
}

func TestUpdateReportsTouchedRows(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s,
		db.Row{"id": "1", "kind": "a"},
		db.Row{"id": "2", "kind": "a"},
		db.Row{"id": "3", "kind": "b"},
	)

	touched, err := s.Update(ctx, table, db.Row{"kind": "c"}, db.Eq("kind", "a"))
	require.NoError(t, err)
	require.EqualValues(t, 2, touched)

	touched, err = s.Update(ctx, table, db.Row{"kind": "x"}, db.Eq("id", "missing"))
	require.NoError(t, err)
	require.EqualValues(t, 0, touched)
}

func TestDeleteReportsRemovedRows(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s,
		db.Row{"id": "1", "kind": "a"},
		db.Row{"id": "2", "kind": "b"},
	)

	removed, err := s.Delete(ctx, table, db.Eq("kind", "a"))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	rows, err := s.Select(ctx, table, db.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSelectReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s, db.Row{"id": "1", "name": "orig"})

	rows, err := s.Select(ctx, table, db.Query{})
	require.NoError(t, err)
	rows[0]["name"] = "mutated"

	rows, err = s.Select(ctx, table, db.Query{})
	require.NoError(t, err)
	require.Equal(t, "orig", rows[0]["name"])
}

func TestSelectOne(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s, db.Row{"id": "1"})

	row, err := db.SelectOne(ctx, s, table, db.Query{Conds: []db.Cond{db.Eq("id", "1")}})
	require.NoError(t, err)
	require.Equal(t, "1", row["id"])

	_, err = db.SelectOne(ctx, s, table, db.Query{Conds: []db.Cond{db.Eq("id", "2")}})
	require.ErrorIs(t, err, db.ErrNotFound)
}
