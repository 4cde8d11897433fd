// Package store persists HDSL records and entities in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed data handler.
type Store struct {
	db *sql.DB
}

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSchemaVersion indicates the database was written by a newer schema.
	ErrSchemaVersion = errors.New("database schema is newer than this build")
)

// CurrentSchemaVersion is the schema version this build writes.
const CurrentSchemaVersion = 1

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- Filesystem records. Times are Unix seconds.
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			parent TEXT NOT NULL,
			name TEXT NOT NULL,
			extension TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			attributes INTEGER NOT NULL DEFAULT 0,
			created INTEGER NOT NULL DEFAULT 0,
			written INTEGER NOT NULL DEFAULT 0,
			accessed INTEGER NOT NULL DEFAULT 0,
			firstscan INTEGER NOT NULL DEFAULT 0,
			lastscan INTEGER NOT NULL DEFAULT 0,
			hash TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS wards (
			path TEXT PRIMARY KEY,
			interval INTEGER NOT NULL,      -- seconds
			statement TEXT NOT NULL,
			due INTEGER NOT NULL,
			created INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS watches (
			path TEXT PRIMARY KEY,
			passive INTEGER NOT NULL DEFAULT 0,
			added INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS hashlogs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			hash TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			logged INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			name TEXT PRIMARY KEY,
			path TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS exclusions (
			path TEXT PRIMARY KEY,
			dynamic INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS column_overrides (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			alias TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (kind, name)
		);

		CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent);
		CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension);
		CREATE INDEX IF NOT EXISTS idx_hashlogs_path ON hashlogs(path);
		CREATE INDEX IF NOT EXISTS idx_wards_due ON wards(due);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read database version: %w", err)
	case version > CurrentSchemaVersion:
		return fmt.Errorf("%w: found v%d, expected v%d", ErrSchemaVersion, version, CurrentSchemaVersion)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", CurrentSchemaVersion))
	if err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// SchemaVersion returns the version recorded in the meta table.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return version, err
}

// Analyze runs SQLite's ANALYZE command to update query planner statistics.
func (s *Store) Analyze() error {
	_, err := s.db.Exec("ANALYZE")
	return err
}
