package interp

import (
	"context"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/query"
)

// DataHandler is the persistent store the interpreter reads and writes.
type DataHandler interface {
	// Catalog returns the column catalog with user overrides applied.
	Catalog(ctx context.Context) (catalog.Catalog, error)
	// ExpandBookmarks replaces every [name] reference to a known bookmark
	// in text with its path. Unknown references are left as written.
	ExpandBookmarks(ctx context.Context, text string) (string, error)

	// Find returns one page of records projected to columns, and the total
	// number of matches.
	Find(ctx context.Context, q *query.FindQuery, columns []catalog.Column) ([]model.Record, int, error)
	// Paths returns the path of every match, unpaged.
	Paths(ctx context.Context, q *query.FindQuery) ([]string, error)
	// Purge deletes every match and returns the number removed.
	Purge(ctx context.Context, q *query.FindQuery) (int64, error)

	SaveBookmark(ctx context.Context, b model.Bookmark) error
	AddExclusions(ctx context.Context, exclusions []model.Exclusion) error
	RemoveExclusions(ctx context.Context, paths []string) (int64, error)
	// SaveWard inserts or updates the ward for w.Path. It reports whether a
	// new ward was created.
	SaveWard(ctx context.Context, w model.Ward) (bool, error)
	SaveWatch(ctx context.Context, w model.Watch) error

	SetSetting(ctx context.Context, key, value string) error
	ClearSetting(ctx context.Context, key string) error
	SaveColumnOverride(ctx context.Context, o model.ColumnOverride) error
	ClearColumnOverride(ctx context.Context, kind model.RecordKind, name string) error
}

// ScanRunner walks and hashes the filesystem on the interpreter's behalf.
type ScanRunner interface {
	Scan(ctx context.Context, paths []string) (model.ScanSummary, error)
	Check(ctx context.Context, paths []string) ([]model.CheckResult, error)
}
