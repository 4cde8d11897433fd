// Package sqlutil holds small helpers shared by the SQLite store.
package sqlutil

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Placeholders returns n comma-separated "?" placeholders. Zero yields
// "NULL", so `IN (NULL)` matches nothing.
func Placeholders(n int) string {
	if n <= 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InClause returns the placeholders and args for an IN list over items.
func InClause[T any](items []T) (string, []any) {
	args := make([]any, len(items))
	for i, item := range items {
		args[i] = item
	}
	return Placeholders(len(items)), args
}

// QueryAll runs query and scans every row with scan.
func QueryAll[T any](ctx context.Context, q Querier, scan func(RowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UnixTime converts stored epoch seconds to a UTC time.
func UnixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// Bool stores a boolean as 0 or 1.
func Bool(b bool) int {
	if b {
		return 1
	}
	return 0
}
