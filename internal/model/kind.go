// Package model defines the records and entities HDSL statements operate on.
package model

import "strings"

// RecordKind selects which record set a statement targets.
type RecordKind int

const (
	KindFilesystem RecordKind = iota
	KindWards
	KindWatches
	KindHashLogs
)

// AllKinds lists every record kind in catalog order.
var AllKinds = []RecordKind{KindFilesystem, KindWards, KindWatches, KindHashLogs}

func (k RecordKind) String() string {
	switch k {
	case KindWards:
		return "wards"
	case KindWatches:
		return "watches"
	case KindHashLogs:
		return "hashlogs"
	default:
		return "filesystem"
	}
}

// Table returns the backing table name for the kind.
func (k RecordKind) Table() string {
	switch k {
	case KindWards:
		return "wards"
	case KindWatches:
		return "watches"
	case KindHashLogs:
		return "hashlogs"
	default:
		return "files"
	}
}

// ParseRecordKind resolves a kind keyword (case-insensitive).
func ParseRecordKind(s string) (RecordKind, bool) {
	switch strings.ToLower(s) {
	case "filesystem":
		return KindFilesystem, true
	case "wards":
		return KindWards, true
	case "watches":
		return KindWatches, true
	case "hashlogs":
		return KindHashLogs, true
	}
	return KindFilesystem, false
}

// MarshalText encodes the kind as its keyword.
func (k RecordKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ValueType is the resolved type of a where-clause operand or column.
type ValueType int

const (
	TypeString ValueType = iota
	TypeWholeNumber
	TypeRealNumber
	TypeDateTime
	TypeBookmark
	// TypeFlags backs bit-set columns such as attributes. It cannot appear
	// in comparisons; use +attr / -attr instead.
	TypeFlags
)

func (t ValueType) String() string {
	switch t {
	case TypeWholeNumber:
		return "WholeNumber"
	case TypeRealNumber:
		return "RealNumber"
	case TypeDateTime:
		return "DateTime"
	case TypeBookmark:
		return "BookmarkReference"
	case TypeFlags:
		return "Flags"
	default:
		return "String"
	}
}

// MarshalText encodes the type by name.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Comparable reports whether values of the type may appear in a comparison.
func (t ValueType) Comparable() bool {
	return t != TypeFlags
}

// Ordered reports whether ordering operators (<, >, ...) apply to the type.
func (t ValueType) Ordered() bool {
	switch t {
	case TypeWholeNumber, TypeRealNumber, TypeDateTime:
		return true
	}
	return false
}

// DepthMode controls how a path list scopes a filesystem query.
type DepthMode int

const (
	// DepthWithin matches the path itself and everything below it.
	DepthWithin DepthMode = iota
	// DepthIn matches immediate children only.
	DepthIn
	// DepthUnder matches everything below the path, excluding the path.
	DepthUnder
)

func (d DepthMode) String() string {
	switch d {
	case DepthIn:
		return "in"
	case DepthUnder:
		return "under"
	default:
		return "within"
	}
}
