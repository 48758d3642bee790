// Package memory implements the db store against process-local maps. It
// backs tests and local development; semantics mirror the postgres backend
// for the predicate set the store exposes.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tensorline/tensorline-backend/internal/db"
)

type Store struct {
	mu     sync.RWMutex
	tables map[db.Table][]db.Row
}

func New() *Store {
	return &Store{tables: make(map[db.Table][]db.Row)}
}

func (s *Store) Select(ctx context.Context, table db.Table, q db.Query) ([]db.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []db.Row
	for _, row := range s.tables[table] {
		if matchesAll(row, q.Conds) {
			matched = append(matched, copyRow(row))
		}
	}

	applySort(matched, q.Order)

	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]db.Row, end-start)
	copy(out, matched[start:end])
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table db.Table, rows []db.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range rows {
		stored := copyRow(row)
		if _, ok := stored["id"]; !ok {
			stored["id"] = uuid.NewString()
		}
		if _, ok := stored["created_at"]; !ok {
			stored["created_at"] = now
		}
		s.tables[table] = append(s.tables[table], stored)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table db.Table, patch db.Row, conds ...db.Cond) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched int64
	for _, row := range s.tables[table] {
		if matchesAll(row, conds) {
			for k, v := range patch {
				row[k] = v
			}
			touched++
		}
	}
	return touched, nil
}

func (s *Store) Delete(ctx context.Context, table db.Table, conds ...db.Cond) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	var removed int64
	for _, row := range s.tables[table] {
		if matchesAll(row, conds) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[db.Table][]db.Row)
	return nil
}

func copyRow(row db.Row) db.Row {
	out := make(db.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func matchesAll(row db.Row, conds []db.Cond) bool {
	for _, c := range conds {
		if !matches(row, c) {
			return false
		}
	}
	return true
}

func matches(row db.Row, c db.Cond) bool {
	value, exists := row[c.Field]

	switch c.Op {
	case db.OpIsNull:
		return !exists || value == nil
	case db.OpNotNull:
		return exists && value != nil
	case db.OpEq:
		if !exists {
			return c.Value == nil
		}
		return equal(value, c.Value)
	case db.OpIn:
		if !exists || value == nil {
			return false
		}
		for _, candidate := range c.Values {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func equal(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return a == b
}

func applySort(rows []db.Row, order []db.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			cmp := compare(rows[i][o.Field], rows[j][o.Field])
			if cmp == 0 {
				continue
			}
			if o.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compare handles the value types the memory backend stores. Nil sorts first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return intCompare(int64(av), int64(bv))
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return intCompare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	}
	return 0
}

func intCompare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
