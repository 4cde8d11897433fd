package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/query"
	"github.com/hashward/hdsl/internal/sqlutil"
)

const fileColumns = `path, size, attributes, created, written, accessed, firstscan, lastscan, hash`

func scanFile(row sqlutil.RowScanner) (model.FileRecord, error) {
	var f model.FileRecord
	var created, written, accessed, first, last int64
	err := row.Scan(&f.Path, &f.Size, &f.Attributes, &created, &written, &accessed, &first, &last, &f.Hash)
	if err != nil {
		return f, err
	}
	f.Created = sqlutil.UnixTime(created)
	f.Written = sqlutil.UnixTime(written)
	f.Accessed = sqlutil.UnixTime(accessed)
	f.FirstScan = sqlutil.UnixTime(first)
	f.LastScan = sqlutil.UnixTime(last)
	return f, nil
}

// File returns the filesystem record for path.
func (s *Store) File(ctx context.Context, path string) (model.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return f, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	return f, err
}

// FilesWithin returns every filesystem record at or below root, keyed by
// path.
func (s *Store) FilesWithin(ctx context.Context, root string) (map[string]model.FileRecord, error) {
	cond, args := query.ScopeSQL(model.DepthWithin, []string{root})
	files, err := sqlutil.QueryAll(ctx, s.db, scanFile, `SELECT `+fileColumns+` FROM files WHERE `+cond, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files within %s: %w", root, err)
	}
	out := make(map[string]model.FileRecord, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out, nil
}

// ScanBatch is the set of changes one scan pass writes.
type ScanBatch struct {
	Upserts  []model.FileRecord
	HashLogs []model.HashLog
	Deletes  []string
}

// Empty reports whether the batch has nothing to write.
func (b ScanBatch) Empty() bool {
	return len(b.Upserts) == 0 && len(b.HashLogs) == 0 && len(b.Deletes) == 0
}

// ApplyScan writes a scan batch in a single transaction.
func (s *Store) ApplyScan(ctx context.Context, b ScanBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range b.Upserts {
		if err := upsertFile(tx, f); err != nil {
			return err
		}
	}
	for _, h := range b.HashLogs {
		if err := insertHashLog(tx, h); err != nil {
			return err
		}
	}
	if err := deleteFiles(tx, b.Deletes); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertFile(e execer, f model.FileRecord) error {
	_, err := e.Exec(`
		INSERT INTO files (path, parent, name, extension, size, attributes, created, written, accessed, firstscan, lastscan, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			size = excluded.size,
			attributes = excluded.attributes,
			created = excluded.created,
			written = excluded.written,
			accessed = excluded.accessed,
			lastscan = excluded.lastscan,
			hash = excluded.hash`,
		f.Path, f.Parent(), f.Name(), f.Extension(), f.Size, f.Attributes,
		f.Created.Unix(), f.Written.Unix(), f.Accessed.Unix(), f.FirstScan.Unix(), f.LastScan.Unix(), f.Hash)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return nil
}

func insertHashLog(e execer, h model.HashLog) error {
	_, err := e.Exec(`INSERT INTO hashlogs (path, hash, size, logged) VALUES (?, ?, ?, ?)`,
		h.Path, h.Hash, h.Size, h.Logged.Unix())
	if err != nil {
		return fmt.Errorf("insert hash log %s: %w", h.Path, err)
	}
	return nil
}

func deleteFiles(e execer, paths []string) error {
	for _, p := range paths {
		if _, err := e.Exec(`DELETE FROM files WHERE path = ?`, p); err != nil {
			return fmt.Errorf("delete file %s: %w", p, err)
		}
	}
	return nil
}

// HashLogs returns the hash history of path, oldest first.
func (s *Store) HashLogs(ctx context.Context, path string) ([]model.HashLog, error) {
	out, err := sqlutil.QueryAll(ctx, s.db, func(row sqlutil.RowScanner) (model.HashLog, error) {
		var h model.HashLog
		var logged int64
		if err := row.Scan(&h.Path, &h.Hash, &h.Size, &logged); err != nil {
			return h, err
		}
		h.Logged = sqlutil.UnixTime(logged)
		return h, nil
	}, `SELECT path, hash, size, logged FROM hashlogs WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query hash logs: %w", err)
	}
	return out, nil
}
