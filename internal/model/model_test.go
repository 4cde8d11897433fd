package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttributes(t *testing.T) {
	flag, ok := LookupAttribute("ReadOnly")
	assert.True(t, ok)
	assert.Equal(t, AttrReadOnly, flag)

	_, ok = LookupAttribute("executable")
	assert.False(t, ok)

	names := AttributeNames()
	assert.Len(t, names, 16)
	assert.Equal(t, "archive", names[0])

	assert.Equal(t, "", FormatAttributes(0))
	assert.Equal(t, "hidden,directory", FormatAttributes(AttrDirectory|AttrHidden))
	assert.Equal(t, "readonly,noscrubdata", FormatAttributes(AttrReadOnly|AttrNoScrubData))
}

func TestRecordKinds(t *testing.T) {
	for _, k := range AllKinds {
		parsed, ok := ParseRecordKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	k, ok := ParseRecordKind("HashLogs")
	assert.True(t, ok)
	assert.Equal(t, KindHashLogs, k)
	assert.Equal(t, "files", KindFilesystem.Table())

	_, ok = ParseRecordKind("objects")
	assert.False(t, ok)

	text, err := KindWards.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "wards", string(text))
}

func TestValueTypes(t *testing.T) {
	assert.False(t, TypeFlags.Comparable())
	assert.True(t, TypeString.Comparable())
	assert.True(t, TypeDateTime.Ordered())
	assert.False(t, TypeString.Ordered())
	assert.Equal(t, "BookmarkReference", TypeBookmark.String())
	assert.Equal(t, "under", DepthUnder.String())
}

func TestFileRecord(t *testing.T) {
	written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := FileRecord{Path: "/data/photos/IMG_01.JPG", Size: 2048, Written: written}

	assert.Equal(t, "/data/photos", f.Parent())
	assert.Equal(t, "IMG_01.JPG", f.Name())
	assert.Equal(t, ".jpg", f.Extension())
	assert.False(t, f.IsDir())

	rec := f.Record()
	assert.Equal(t, "IMG_01.JPG", rec.String("name"))
	assert.Equal(t, int64(2048), rec.Int("size"))
	assert.Equal(t, written, rec.Time("written"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Zero(t, rec.Int("missing"))

	f.Attributes = AttrDirectory
	assert.True(t, f.IsDir())
}

func TestScanSummaryAdd(t *testing.T) {
	s := ScanSummary{Inserted: 1, Skipped: 2}
	s.Add(ScanSummary{Inserted: 2, Updated: 1, Deleted: 3, Unchanged: 4})
	assert.Equal(t, ScanSummary{Inserted: 3, Updated: 1, Deleted: 3, Unchanged: 4, Skipped: 2}, s)
}
