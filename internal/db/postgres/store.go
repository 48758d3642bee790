// Package postgres implements the db store on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tensorline/tensorline-backend/internal/db"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Select(ctx context.Context, table db.Table, q db.Query) ([]db.Row, error) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString(`SELECT * FROM ` + quoteIdent(string(table)))
	writeWhere(&sb, &args, q.Conds)

	for i, o := range q.Order {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIdent(o.Field))
		if o.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	return collectRows(rows)
}

func (s *Store) Insert(ctx context.Context, table db.Table, rowsIn []db.Row) error {
	if len(rowsIn) == 0 {
		return nil
	}

	// Column set comes from the first row; all rows in one call carry the
	// same shape (the sync engine and audit logger guarantee this).
	cols := make([]string, 0, len(rowsIn[0]))
	for col := range rowsIn[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	sb.WriteString(`INSERT INTO ` + quoteIdent(string(table)) + ` (`)
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIdent(col))
	}
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(cols)*len(rowsIn))
	for i, row := range rowsIn {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, row[col])
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteString(")")
	}

	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table db.Table, patch db.Row, conds ...db.Cond) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}

	cols := make([]string, 0, len(patch))
	for col := range patch {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	args := []any{}

	sb.WriteString(`UPDATE ` + quoteIdent(string(table)) + ` SET `)
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		args = append(args, patch[col])
		fmt.Fprintf(&sb, "%s = $%d", quoteIdent(col), len(args))
	}
	writeWhere(&sb, &args, conds)

	tag, err := s.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Delete(ctx context.Context, table db.Table, conds ...db.Cond) (int64, error) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString(`DELETE FROM ` + quoteIdent(string(table)))
	writeWhere(&sb, &args, conds)

	tag, err := s.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func writeWhere(sb *strings.Builder, args *[]any, conds []db.Cond) {
	for i, c := range conds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}

		field := quoteIdent(c.Field)
		switch c.Op {
		case db.OpEq:
			*args = append(*args, c.Value)
			fmt.Fprintf(sb, "%s = $%d", field, len(*args))
		case db.OpIn:
			*args = append(*args, c.Values)
			fmt.Fprintf(sb, "%s = ANY($%d)", field, len(*args))
		case db.OpIsNull:
			fmt.Fprintf(sb, "%s IS NULL", field)
		case db.OpNotNull:
			fmt.Fprintf(sb, "%s IS NOT NULL", field)
		}
	}
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func collectRows(rows pgx.Rows) ([]db.Row, error) {
	fields := rows.FieldDescriptions()
	out := []db.Row{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(db.Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
