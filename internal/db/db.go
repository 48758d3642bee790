// Package db defines the storage interface: the minimal verb set every engine
// in this service issues against named tables. Implementations live in the
// backends subpackages; callers hold only the Store interface.
package db

import (
	"context"
	"errors"
)

// Row is one record as returned by or written to a backend.
type Row map[string]any

// Table identifies a known table. The content registry declares the full set
// as typed constants; generic helpers (relationship sync, junction cascades)
// are parameterized by Table rather than raw strings.
type Table string

// Common database errors.
var (
	ErrNotFound   = errors.New("record not found")
	ErrBadOperand = errors.New("invalid predicate operand")
)

// Op enumerates predicate operators.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpIsNull
	OpNotNull
)

// Cond is a single predicate combinable on any verb.
type Cond struct {
	Field  string
	Op     Op
	Value  any
	Values []any
}

func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

func In(field string, values []any) Cond {
	return Cond{Field: field, Op: OpIn, Values: values}
}

func IsNull(field string) Cond {
	return Cond{Field: field, Op: OpIsNull}
}

func NotNull(field string) Cond {
	return Cond{Field: field, Op: OpNotNull}
}

// Order is a sort directive.
type Order struct {
	Field string
	Desc  bool
}

// Query bundles predicates and list modifiers for Select.
type Query struct {
	Conds  []Cond
	Order  []Order
	Limit  int // 0 means no limit
	Offset int
}

// Store is the storage interface. All verbs are I/O-bound and honor the
// caller's context deadline; no verb spans more than one table.
type Store interface {
	// Select returns all rows matching the query. An empty result is a
	// zero-length slice, never an error.
	Select(ctx context.Context, table Table, q Query) ([]Row, error)

	// Insert writes the given rows. Backends fill id/created_at when absent.
	Insert(ctx context.Context, table Table, rows []Row) error

	// Update applies patch to every row matching conds and reports how many
	// rows were touched.
	Update(ctx context.Context, table Table, patch Row, conds ...Cond) (int64, error)

	// Delete physically removes matching rows and reports the count.
	Delete(ctx context.Context, table Table, conds ...Cond) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// SelectOne returns the first row matching the query or ErrNotFound.
func SelectOne(ctx context.Context, s Store, table Table, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
