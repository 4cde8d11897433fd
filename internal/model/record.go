package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is one row of any record kind, keyed by canonical column name.
//
// Values are string, int64, float64 or time.Time depending on the column's
// backing type. Flags columns hold int64.
type Record map[string]any

// String returns the string value of a column, or "" when absent.
func (r Record) String(col string) string {
	s, _ := r[col].(string)
	return s
}

// Int returns the integer value of a column, or 0 when absent.
func (r Record) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Time returns the time value of a column, or the zero time when absent.
func (r Record) Time(col string) time.Time {
	t, _ := r[col].(time.Time)
	return t
}

// FileRecord is the typed form of a filesystem record, written by the scanner.
type FileRecord struct {
	Path       string
	Size       int64
	Attributes int64
	Created    time.Time
	Written    time.Time
	Accessed   time.Time
	FirstScan  time.Time
	LastScan   time.Time
	Hash       string
}

// Parent returns the directory containing the record.
func (f FileRecord) Parent() string {
	return filepath.Dir(f.Path)
}

// Name returns the final path element.
func (f FileRecord) Name() string {
	return filepath.Base(f.Path)
}

// Extension returns the lower-cased extension including the dot.
func (f FileRecord) Extension() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// IsDir reports whether the record describes a directory.
func (f FileRecord) IsDir() bool {
	return f.Attributes&AttrDirectory == AttrDirectory
}

// Record converts the typed form into a generic record.
func (f FileRecord) Record() Record {
	return Record{
		"path":       f.Path,
		"parent":     f.Parent(),
		"name":       f.Name(),
		"extension":  f.Extension(),
		"size":       f.Size,
		"attributes": f.Attributes,
		"created":    f.Created,
		"written":    f.Written,
		"accessed":   f.Accessed,
		"firstscan":  f.FirstScan,
		"lastscan":   f.LastScan,
		"hash":       f.Hash,
	}
}

// HashLog is one entry in a file's hash history.
type HashLog struct {
	Path   string
	Hash   string
	Size   int64
	Logged time.Time
}
