package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/query"
	"github.com/hashward/hdsl/internal/sqlutil"
)

// Find returns one page of records projected to columns, and the total
// number of matches.
func (s *Store) Find(ctx context.Context, q *query.FindQuery, columns []catalog.Column) ([]model.Record, int, error) {
	if len(columns) == 0 {
		return nil, 0, fmt.Errorf("find %s: no columns selected", q.Kind)
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	sqlStr, args := q.SelectSQL(names)
	records, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.Record, error) {
		return scanRecord(row, columns)
	}, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", q.Kind.Table(), err)
	}

	countSQL, countArgs := q.CountSQL()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", q.Kind.Table(), err)
	}
	return records, total, nil
}

// scanRecord reads one row into a record keyed by canonical column name,
// converting each value to the Go type of its column.
func scanRecord(row sqlutil.RowScanner, columns []catalog.Column) (model.Record, error) {
	dest := make([]any, len(columns))
	for i, c := range columns {
		switch c.Type {
		case model.TypeWholeNumber, model.TypeFlags, model.TypeDateTime:
			dest[i] = new(sql.NullInt64)
		case model.TypeRealNumber:
			dest[i] = new(sql.NullFloat64)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	rec := make(model.Record, len(columns))
	for i, c := range columns {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			if c.Type == model.TypeDateTime {
				rec[c.Name] = sqlutil.UnixTime(v.Int64)
			} else {
				rec[c.Name] = v.Int64
			}
		case *sql.NullFloat64:
			rec[c.Name] = v.Float64
		case *sql.NullString:
			rec[c.Name] = v.String
		}
	}
	return rec, nil
}

// Paths returns the path of every match, unpaged.
func (s *Store) Paths(ctx context.Context, q *query.FindQuery) ([]string, error) {
	sqlStr, args := q.PathsSQL()
	paths, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (string, error) {
		var p string
		err := row.Scan(&p)
		return p, err
	}, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s paths: %w", q.Kind.Table(), err)
	}
	return paths, nil
}

// Purge deletes every match and returns the number removed.
func (s *Store) Purge(ctx context.Context, q *query.FindQuery) (int64, error) {
	sqlStr, args := q.DeleteSQL()
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", q.Kind.Table(), err)
	}
	return res.RowsAffected()
}
