package model

import (
	"sort"
	"strings"
)

// File attribute bits stored in the attributes column.
const (
	AttrReadOnly          int64 = 0x1
	AttrHidden            int64 = 0x2
	AttrSystem            int64 = 0x4
	AttrDirectory         int64 = 0x10
	AttrArchive           int64 = 0x20
	AttrDevice            int64 = 0x40
	AttrNormal            int64 = 0x80
	AttrTemporary         int64 = 0x100
	AttrSparseFile        int64 = 0x200
	AttrReparsePoint      int64 = 0x400
	AttrCompressed        int64 = 0x800
	AttrOffline           int64 = 0x1000
	AttrNotContentIndexed int64 = 0x2000
	AttrEncrypted         int64 = 0x4000
	AttrIntegrityStream   int64 = 0x8000
	AttrNoScrubData       int64 = 0x20000
)

var attributeNames = map[string]int64{
	"readonly":          AttrReadOnly,
	"hidden":            AttrHidden,
	"system":            AttrSystem,
	"directory":         AttrDirectory,
	"archive":           AttrArchive,
	"device":            AttrDevice,
	"normal":            AttrNormal,
	"temporary":         AttrTemporary,
	"sparsefile":        AttrSparseFile,
	"reparsepoint":      AttrReparsePoint,
	"compressed":        AttrCompressed,
	"offline":           AttrOffline,
	"notcontentindexed": AttrNotContentIndexed,
	"encrypted":         AttrEncrypted,
	"integritystream":   AttrIntegrityStream,
	"noscrubdata":       AttrNoScrubData,
}

// LookupAttribute resolves a file-attribute name (case-insensitive).
func LookupAttribute(name string) (int64, bool) {
	flag, ok := attributeNames[strings.ToLower(name)]
	return flag, ok
}

// AttributeNames returns the attribute names in sorted order.
func AttributeNames() []string {
	names := make([]string, 0, len(attributeNames))
	for name := range attributeNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatAttributes lists the names of the bits set in flags, separated by
// commas, in ascending bit order.
func FormatAttributes(flags int64) string {
	var names []string
	for bit := int64(1); bit <= AttrNoScrubData; bit <<= 1 {
		if flags&bit == 0 {
			continue
		}
		for name, v := range attributeNames {
			if v == bit {
				names = append(names, name)
				break
			}
		}
	}
	return strings.Join(names, ",")
}
