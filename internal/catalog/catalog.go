// Package catalog resolves column names and aliases for each record kind.
//
// A Snapshot is built once per Tokenize/Run call from the default columns and
// any persisted overrides, and is read-only afterwards.
package catalog

import (
	"strings"

	"github.com/hashward/hdsl/internal/model"
)

// Column is the mapping of one canonical column to its display settings.
type Column struct {
	Name  string
	Alias string
	Type  model.ValueType
	Width int
}

// Display returns the alias when set, otherwise the canonical name.
func (c Column) Display() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// Catalog looks up columns for a record kind.
type Catalog interface {
	Lookup(kind model.RecordKind, ident string) (Column, bool)
	Columns(kind model.RecordKind) []Column
}

var defaults = map[model.RecordKind][]Column{
	model.KindFilesystem: {
		{Name: "path", Type: model.TypeString, Width: 60},
		{Name: "parent", Type: model.TypeString, Width: 40},
		{Name: "name", Type: model.TypeString, Width: 30},
		{Name: "extension", Type: model.TypeString, Width: 10},
		{Name: "size", Type: model.TypeWholeNumber, Width: 12},
		{Name: "attributes", Type: model.TypeFlags, Width: 10},
		{Name: "created", Type: model.TypeDateTime, Width: 19},
		{Name: "written", Type: model.TypeDateTime, Width: 19},
		{Name: "accessed", Type: model.TypeDateTime, Width: 19},
		{Name: "firstscan", Type: model.TypeDateTime, Width: 19},
		{Name: "lastscan", Type: model.TypeDateTime, Width: 19},
		{Name: "hash", Type: model.TypeString, Width: 64},
	},
	model.KindWards: {
		{Name: "path", Type: model.TypeString, Width: 60},
		{Name: "interval", Type: model.TypeWholeNumber, Width: 10},
		{Name: "statement", Type: model.TypeString, Width: 60},
		{Name: "due", Type: model.TypeDateTime, Width: 19},
		{Name: "created", Type: model.TypeDateTime, Width: 19},
	},
	model.KindWatches: {
		{Name: "path", Type: model.TypeString, Width: 60},
		{Name: "passive", Type: model.TypeWholeNumber, Width: 7},
		{Name: "added", Type: model.TypeDateTime, Width: 19},
	},
	model.KindHashLogs: {
		{Name: "path", Type: model.TypeString, Width: 60},
		{Name: "hash", Type: model.TypeString, Width: 64},
		{Name: "size", Type: model.TypeWholeNumber, Width: 12},
		{Name: "logged", Type: model.TypeDateTime, Width: 19},
	},
}

// Snapshot is an immutable catalog.
type Snapshot struct {
	columns map[model.RecordKind][]Column
}

// Default returns a snapshot with no overrides applied.
func Default() *Snapshot {
	return New(nil)
}

// New returns a snapshot with the given overrides applied on top of the
// default columns. Overrides for unknown columns are ignored.
func New(overrides []model.ColumnOverride) *Snapshot {
	s := &Snapshot{columns: make(map[model.RecordKind][]Column, len(defaults))}
	for kind, cols := range defaults {
		s.columns[kind] = append([]Column(nil), cols...)
	}
	for _, o := range overrides {
		cols := s.columns[o.Kind]
		for i := range cols {
			if cols[i].Name != o.Name {
				continue
			}
			if o.Alias != "" {
				cols[i].Alias = o.Alias
			}
			if o.Width > 0 {
				cols[i].Width = o.Width
			}
		}
	}
	return s
}

// Lookup finds a column by canonical name or alias, case-insensitively.
func (s *Snapshot) Lookup(kind model.RecordKind, ident string) (Column, bool) {
	for _, c := range s.columns[kind] {
		if strings.EqualFold(c.Name, ident) || (c.Alias != "" && strings.EqualFold(c.Alias, ident)) {
			return c, true
		}
	}
	return Column{}, false
}

// Columns returns the full canonical column set for a kind.
func (s *Snapshot) Columns(kind model.RecordKind) []Column {
	return append([]Column(nil), s.columns[kind]...)
}

// Synthetic returns a fully populated record for a kind, with a zero value of
// the right Go type in every column. It is used to dry-run where trees.
func Synthetic(c Catalog, kind model.RecordKind) model.Record {
	rec := make(model.Record)
	for _, col := range c.Columns(kind) {
		rec[col.Name] = ZeroValue(col.Type)
	}
	return rec
}
