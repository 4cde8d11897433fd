package scan

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/store"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

var (
	scanTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	modTime  = time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)
)

type fixture struct {
	fs     afero.Fs
	store  *store.Store
	runner *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{fs: fs, store: st}
	f.write(t, "/data/a.txt", "hello")
	f.write(t, "/data/sub/b.txt", "world")
	f.write(t, "/data/.hidden", "h")
	for _, dir := range []string{"/data", "/data/sub"} {
		require.NoError(t, fs.Chtimes(dir, modTime, modTime))
	}
	f.runner = New(st, Options{
		Fs:      fs,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return scanTime },
		Workers: 2,
	})
	return f
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, f.fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(content), 0o644))
	require.NoError(t, f.fs.Chtimes(path, modTime, modTime))
}

func TestScanInsertsThenReportsUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Inserted: 5}, sum)

	rec, err := f.store.File(ctx, "/data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, helloSHA256, rec.Hash)
	assert.Equal(t, int64(5), rec.Size)
	assert.Equal(t, modTime, rec.Written)
	assert.Equal(t, scanTime, rec.FirstScan)
	assert.Equal(t, model.AttrNormal, rec.Attributes)

	hidden, err := f.store.File(ctx, "/data/.hidden")
	require.NoError(t, err)
	assert.Equal(t, model.AttrHidden, hidden.Attributes)

	dir, err := f.store.File(ctx, "/data/sub")
	require.NoError(t, err)
	assert.True(t, dir.IsDir())
	assert.Empty(t, dir.Hash)

	sum, err = f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Unchanged: 5}, sum)
}

func TestScanLogsHashChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(f.fs, "/data/a.txt", []byte("hello!"), 0o644))
	later := modTime.Add(time.Hour)
	require.NoError(t, f.fs.Chtimes("/data/a.txt", later, later))

	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Updated: 1, Unchanged: 4}, sum)

	logs, err := f.store.HashLogs(ctx, "/data/a.txt")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, helloSHA256, logs[0].Hash)
	assert.NotEqual(t, helloSHA256, logs[1].Hash)
	assert.Equal(t, int64(6), logs[1].Size)
}

func TestScanDeletesVanishedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)

	require.NoError(t, f.fs.Remove("/data/sub/b.txt"))
	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Deleted)

	_, err = f.store.File(ctx, "/data/sub/b.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScanMissingRootDeletesItsRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.runner.Scan(ctx, []string{"/data/sub"})
	require.NoError(t, err)

	require.NoError(t, f.fs.RemoveAll("/data/sub"))
	sum, err := f.runner.Scan(ctx, []string{"/data/sub"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Deleted: 2}, sum)
}

func TestScanScopeIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "/DATA/keep.txt", "keep")

	sum, err := f.runner.Scan(ctx, []string{"/DATA"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Inserted: 2}, sum)

	sum, err = f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Inserted: 5}, sum)

	_, err = f.store.File(ctx, "/DATA/keep.txt")
	assert.NoError(t, err)
	_, err = f.store.File(ctx, "/DATA")
	assert.NoError(t, err)
}

func TestScanSkipsExclusions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddExclusions(ctx, []model.Exclusion{{Path: "/data/sub"}}))

	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Inserted: 3, Skipped: 1}, sum)

	_, err = f.store.File(ctx, "/data/sub/b.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExcludedRecordsAreKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)

	require.NoError(t, f.store.AddExclusions(ctx, []model.Exclusion{{Path: "/data/a.txt"}}))
	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Unchanged: 4, Skipped: 1}, sum)

	_, err = f.store.File(ctx, "/data/a.txt")
	assert.NoError(t, err)
}

func TestDynamicExclusionFollowsBookmark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddExclusions(ctx, []model.Exclusion{{Path: "[skip]", Dynamic: true}}))

	// An unknown bookmark excludes nothing.
	sum, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Inserted)

	require.NoError(t, f.store.SaveBookmark(ctx, model.Bookmark{Name: "skip", Path: "/data/sub"}))
	sum, err = f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)
	assert.Equal(t, model.ScanSummary{Unchanged: 3, Skipped: 1}, sum)
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.runner.Scan(ctx, []string{"/data"})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(f.fs, "/data/sub/b.txt", []byte("changed"), 0o644))
	require.NoError(t, f.fs.Remove("/data/.hidden"))

	results, err := f.runner.Check(ctx, []string{"/data/a.txt", "/data/sub/b.txt", "/data/.hidden", "/elsewhere"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, model.CheckOK, results[0].Status)
	assert.Equal(t, helloSHA256, results[0].Actual)
	assert.Equal(t, model.CheckModified, results[1].Status)
	assert.NotEqual(t, results[1].Expected, results[1].Actual)
	assert.Equal(t, model.CheckMissing, results[2].Status)
	assert.Equal(t, model.CheckUnindexed, results[3].Status)
}

func TestAttributes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ro.txt", nil, 0o444))
	require.NoError(t, fs.MkdirAll("/.git", 0o755))

	info, err := fs.Stat("/ro.txt")
	require.NoError(t, err)
	assert.Equal(t, model.AttrReadOnly, Attributes(info))

	info, err = fs.Stat("/.git")
	require.NoError(t, err)
	assert.Equal(t, model.AttrDirectory|model.AttrHidden, Attributes(info))
}

func TestScanHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.runner.Scan(ctx, []string{"/data"})
	assert.ErrorIs(t, err, context.Canceled)
}
