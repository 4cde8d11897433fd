package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/sqlutil"
)

// Catalog returns the default catalog with persisted column overrides
// applied.
func (s *Store) Catalog(ctx context.Context) (catalog.Catalog, error) {
	overrides, err := s.ColumnOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.New(overrides), nil
}

// ColumnOverrides lists every persisted column override.
func (s *Store) ColumnOverrides(ctx context.Context) ([]model.ColumnOverride, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.ColumnOverride, error) {
		var o model.ColumnOverride
		var kind string
		if err := row.Scan(&kind, &o.Name, &o.Alias, &o.Width); err != nil {
			return o, err
		}
		o.Kind, _ = model.ParseRecordKind(kind)
		return o, nil
	}, `SELECT kind, name, alias, width FROM column_overrides ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query column overrides: %w", err)
	}
	return out, nil
}

// SaveColumnOverride merges o into the stored override for its column. An
// empty alias or zero width keeps the stored value.
func (s *Store) SaveColumnOverride(ctx context.Context, o model.ColumnOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO column_overrides (kind, name, alias, width) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, name) DO UPDATE SET
			alias = CASE WHEN excluded.alias <> '' THEN excluded.alias ELSE alias END,
			width = CASE WHEN excluded.width > 0 THEN excluded.width ELSE width END`,
		o.Kind.String(), o.Name, o.Alias, o.Width)
	return err
}

// ClearColumnOverride removes the override for one column.
func (s *Store) ClearColumnOverride(ctx context.Context, kind model.RecordKind, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM column_overrides WHERE kind = ? AND name = ?`, kind.String(), name)
	return err
}

// SaveBookmark creates or redefines a bookmark.
func (s *Store) SaveBookmark(ctx context.Context, b model.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (name, path) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET path = excluded.path`, b.Name, b.Path)
	return err
}

// Bookmarks lists every bookmark by name.
func (s *Store) Bookmarks(ctx context.Context) ([]model.Bookmark, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.Bookmark, error) {
		var b model.Bookmark
		err := row.Scan(&b.Name, &b.Path)
		return b, err
	}, `SELECT name, path FROM bookmarks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	return out, nil
}

var bookmarkRef = regexp.MustCompile(`\[([^\[\]]+)\]`)

// ExpandBookmarks replaces [name] references to known bookmarks with their
// paths. Unknown references are left as written.
func (s *Store) ExpandBookmarks(ctx context.Context, text string) (string, error) {
	if !bookmarkRef.MatchString(text) {
		return text, nil
	}
	bookmarks, err := s.Bookmarks(ctx)
	if err != nil {
		return "", err
	}
	paths := make(map[string]string, len(bookmarks))
	for _, b := range bookmarks {
		paths[b.Name] = b.Path
	}
	return bookmarkRef.ReplaceAllStringFunc(text, func(ref string) string {
		if p, ok := paths[ref[1:len(ref)-1]]; ok {
			return p
		}
		return ref
	}), nil
}

// AddExclusions stores exclusions, replacing any with the same path.
func (s *Store) AddExclusions(ctx context.Context, exclusions []model.Exclusion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range exclusions {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO exclusions (path, dynamic) VALUES (?, ?)`, e.Path, sqlutil.Bool(e.Dynamic)); err != nil {
			return fmt.Errorf("insert exclusion %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

// RemoveExclusions deletes exclusions by path and returns how many went.
func (s *Store) RemoveExclusions(ctx context.Context, paths []string) (int64, error) {
	ph, args := sqlutil.InClause(paths)
	res, err := s.db.ExecContext(ctx, `DELETE FROM exclusions WHERE path IN (`+ph+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Exclusions lists every exclusion as stored.
func (s *Store) Exclusions(ctx context.Context) ([]model.Exclusion, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.Exclusion, error) {
		var e model.Exclusion
		err := row.Scan(&e.Path, &e.Dynamic)
		return e, err
	}, `SELECT path, dynamic FROM exclusions ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exclusions: %w", err)
	}
	return out, nil
}

// SaveWard inserts or updates the ward on w.Path, keeping the original
// creation time on update. It reports whether the ward is new.
func (s *Store) SaveWard(ctx context.Context, w model.Ward) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM wards WHERE path = ?`, w.Path).Scan(&exists)
	if err != nil {
		return false, err
	}
	_, err = tx.Exec(`
		INSERT INTO wards (path, interval, statement, due, created) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			interval = excluded.interval,
			statement = excluded.statement,
			due = excluded.due`,
		w.Path, int64(w.Interval/time.Second), w.Statement, w.Due.Unix(), w.Created.Unix())
	if err != nil {
		return false, err
	}
	return exists == 0, tx.Commit()
}

// Ward returns the ward on path.
func (s *Store) Ward(ctx context.Context, path string) (model.Ward, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, interval, statement, due, created FROM wards WHERE path = ?`, path)
	w, err := scanWard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return w, fmt.Errorf("ward %s: %w", path, ErrNotFound)
	}
	return w, err
}

// DueWards lists wards whose next run is at or before now, oldest first.
func (s *Store) DueWards(ctx context.Context, now time.Time) ([]model.Ward, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, scanWard, `SELECT path, interval, statement, due, created FROM wards WHERE due <= ? ORDER BY due, path`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query due wards: %w", err)
	}
	return out, nil
}

// MarkWardRun moves a ward's next due time to ran plus its interval.
func (s *Store) MarkWardRun(ctx context.Context, path string, ran time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE wards SET due = ? + interval WHERE path = ?`, ran.Unix(), path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ward %s: %w", path, ErrNotFound)
	}
	return nil
}

func scanWard(row sqlutil.RowScanner) (model.Ward, error) {
	var w model.Ward
	var interval, due, created int64
	if err := row.Scan(&w.Path, &interval, &w.Statement, &due, &created); err != nil {
		return w, err
	}
	w.Interval = time.Duration(interval) * time.Second
	w.Due = sqlutil.UnixTime(due)
	w.Created = sqlutil.UnixTime(created)
	return w, nil
}

// SaveWatch creates or updates a watch. Updating keeps the original added
// time.
func (s *Store) SaveWatch(ctx context.Context, w model.Watch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watches (path, passive, added) VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET passive = excluded.passive`,
		w.Path, sqlutil.Bool(w.Passive), w.Added.Unix())
	return err
}

// Watches lists every watch by path.
func (s *Store) Watches(ctx context.Context) ([]model.Watch, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.Watch, error) {
		var w model.Watch
		var added int64
		if err := row.Scan(&w.Path, &w.Passive, &added); err != nil {
			return w, err
		}
		w.Added = sqlutil.UnixTime(added)
		return w, nil
	}, `SELECT path, passive, added FROM watches ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	return out, nil
}

// SetSetting stores a key/value setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ClearSetting removes a setting.
func (s *Store) ClearSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// Setting returns a setting's value, or ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	return value, err
}
