package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/model"
)

func TestDefaultColumns(t *testing.T) {
	c := Default()
	cols := c.Columns(model.KindFilesystem)
	require.Len(t, cols, 12)
	assert.Equal(t, "path", cols[0].Name)

	col, ok := c.Lookup(model.KindWards, "INTERVAL")
	require.True(t, ok)
	assert.Equal(t, model.TypeWholeNumber, col.Type)

	_, ok = c.Lookup(model.KindWatches, "hash")
	assert.False(t, ok)
}

func TestOverrides(t *testing.T) {
	c := New([]model.ColumnOverride{
		{Kind: model.KindFilesystem, Name: "size", Alias: "bytes", Width: 8},
		{Kind: model.KindFilesystem, Name: "nope", Alias: "x"},
	})

	col, ok := c.Lookup(model.KindFilesystem, "Bytes")
	require.True(t, ok)
	assert.Equal(t, "size", col.Name)
	assert.Equal(t, "bytes", col.Display())
	assert.Equal(t, 8, col.Width)

	// Overrides are per kind.
	col, ok = c.Lookup(model.KindHashLogs, "size")
	require.True(t, ok)
	assert.Equal(t, "size", col.Display())

	_, ok = c.Lookup(model.KindFilesystem, "x")
	assert.False(t, ok)

	// Snapshots are independent of the defaults.
	d := Default()
	col, _ = d.Lookup(model.KindFilesystem, "size")
	assert.Empty(t, col.Alias)
}

func TestColumnsReturnsCopy(t *testing.T) {
	c := Default()
	cols := c.Columns(model.KindWatches)
	cols[0].Alias = "changed"
	col, _ := c.Lookup(model.KindWatches, "path")
	assert.Empty(t, col.Alias)
}

func TestSynthetic(t *testing.T) {
	rec := Synthetic(Default(), model.KindFilesystem)
	assert.Equal(t, "", rec["path"])
	assert.Equal(t, int64(0), rec["size"])
	assert.Equal(t, int64(0), rec["attributes"])
	assert.Equal(t, time.Unix(0, 0), rec["written"])
}

func TestSuggest(t *testing.T) {
	c := New([]model.ColumnOverride{{Kind: model.KindFilesystem, Name: "size", Alias: "bytes"}})
	assert.Equal(t, "size", Suggest(c, model.KindFilesystem, "szie"))
	assert.Equal(t, "bytes", Suggest(c, model.KindFilesystem, "byte"))
	assert.Equal(t, "logged", Suggest(c, model.KindHashLogs, "loged"))
	assert.Empty(t, Suggest(c, model.KindFilesystem, "bogus"))
}
