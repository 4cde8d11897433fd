package interp

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/query"
)

type fakeData struct {
	bookmarks  map[string]string
	exclusions []model.Exclusion
	removed    []string
	wards      map[string]model.Ward
	watches    []model.Watch
	settings   map[string]string
	overrides  []model.ColumnOverride
	cleared    []string

	queries  []*query.FindQuery
	purges   []*query.FindQuery
	records  []model.Record
	total    int
	paths    []string
	panicked bool
}

func newFakeData() *fakeData {
	return &fakeData{
		bookmarks: map[string]string{},
		wards:     map[string]model.Ward{},
		settings:  map[string]string{},
	}
}

func (f *fakeData) Catalog(context.Context) (catalog.Catalog, error) {
	return catalog.New(f.overrides), nil
}

func (f *fakeData) ExpandBookmarks(_ context.Context, text string) (string, error) {
	for name, path := range f.bookmarks {
		text = strings.ReplaceAll(text, "["+name+"]", path)
	}
	return text, nil
}

func (f *fakeData) Find(_ context.Context, q *query.FindQuery, _ []catalog.Column) ([]model.Record, int, error) {
	if f.panicked {
		panic("store exploded")
	}
	f.queries = append(f.queries, q)
	return f.records, f.total, nil
}

func (f *fakeData) Paths(_ context.Context, q *query.FindQuery) ([]string, error) {
	f.queries = append(f.queries, q)
	return f.paths, nil
}

func (f *fakeData) Purge(_ context.Context, q *query.FindQuery) (int64, error) {
	f.purges = append(f.purges, q)
	return 3, nil
}

func (f *fakeData) SaveBookmark(_ context.Context, b model.Bookmark) error {
	f.bookmarks[b.Name] = b.Path
	return nil
}

func (f *fakeData) AddExclusions(_ context.Context, ex []model.Exclusion) error {
	f.exclusions = append(f.exclusions, ex...)
	return nil
}

func (f *fakeData) RemoveExclusions(_ context.Context, paths []string) (int64, error) {
	f.removed = append(f.removed, paths...)
	return int64(len(paths)), nil
}

func (f *fakeData) SaveWard(_ context.Context, w model.Ward) (bool, error) {
	_, exists := f.wards[w.Path]
	f.wards[w.Path] = w
	return !exists, nil
}

func (f *fakeData) SaveWatch(_ context.Context, w model.Watch) error {
	f.watches = append(f.watches, w)
	return nil
}

func (f *fakeData) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeData) ClearSetting(_ context.Context, key string) error {
	f.cleared = append(f.cleared, key)
	return nil
}

func (f *fakeData) SaveColumnOverride(_ context.Context, o model.ColumnOverride) error {
	f.overrides = append(f.overrides, o)
	return nil
}

func (f *fakeData) ClearColumnOverride(_ context.Context, kind model.RecordKind, name string) error {
	f.cleared = append(f.cleared, kind.String()+"."+name)
	return nil
}

type fakeScanner struct {
	scanned [][]string
	checked [][]string
}

func (s *fakeScanner) Scan(_ context.Context, paths []string) (model.ScanSummary, error) {
	s.scanned = append(s.scanned, paths)
	return model.ScanSummary{Inserted: 2, Unchanged: 5}, nil
}

func (s *fakeScanner) Check(_ context.Context, paths []string) ([]model.CheckResult, error) {
	s.checked = append(s.checked, paths)
	out := make([]model.CheckResult, len(paths))
	for i, p := range paths {
		out[i] = model.CheckResult{Path: p, Status: model.CheckOK}
	}
	if len(out) > 0 {
		out[0].Status = model.CheckModified
	}
	return out, nil
}

var testNow = time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)

type harness struct {
	in      *Interpreter
	data    *fakeData
	scanner *fakeScanner
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"/work/sub", "/data"} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	require.NoError(t, afero.WriteFile(fs, "/data/file.txt", []byte("x"), 0o644))

	h := &harness{data: newFakeData(), scanner: &fakeScanner{}}
	o := Options{
		Data:    h.data,
		Scanner: h.scanner,
		Fs:      fs,
		WorkDir: "/work",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return testNow },
	}
	for _, fn := range opts {
		fn(&o)
	}
	in, err := New(o)
	require.NoError(t, err)
	h.in = in
	return h
}

func (h *harness) run(t *testing.T, src string) outcome.Set {
	t.Helper()
	return h.in.Run(context.Background(), src)
}

func (h *harness) mustRun(t *testing.T, src string) []outcome.Outcome {
	t.Helper()
	set := h.run(t, src)
	require.True(t, set.OK(), "diagnostics: %v", set.Diagnostics)
	return set.Outcomes
}

func requireDiagnostic(t *testing.T, set outcome.Set, substr string) {
	t.Helper()
	require.False(t, set.OK(), "expected diagnostics")
	assert.Empty(t, set.Outcomes)
	require.Len(t, set.Diagnostics, 1)
	assert.Contains(t, set.Diagnostics[0].Message, substr)
}

func TestNewRequiresDataHandler(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestFindDefaults(t *testing.T) {
	h := newHarness(t)
	h.data.records = []model.Record{{"path": "/work/a", "size": int64(2048)}}
	h.data.total = 40

	outs := h.mustRun(t, "find where size > 1024;")
	require.Len(t, outs, 1)
	require.Len(t, h.data.queries, 1)

	q := h.data.queries[0]
	assert.Equal(t, model.KindFilesystem, q.Kind)
	assert.Equal(t, "size > 1024", q.Predicate)
	assert.Equal(t, model.DepthWithin, q.Depth)
	assert.Equal(t, []string{"/work"}, q.Paths)
	assert.Equal(t, []query.Sort{{Column: "path"}}, q.Order)
	assert.Equal(t, 0, q.Page)
	assert.Equal(t, 32, q.PageSize)

	out := outs[0]
	assert.Equal(t, "find where size > 1024;", out.Statement)
	assert.Len(t, out.Columns, len(catalog.Default().Columns(model.KindFilesystem)))
	assert.Equal(t, 40, out.Total)
	assert.Equal(t, 2, out.PageCount)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, int64(2048), out.Rows[0]["size"])
}

func TestFindClauses(t *testing.T) {
	h := newHarness(t)
	h.data.bookmarks["docs"] = "/data"

	outs := h.mustRun(t, "find columns path, size in [docs], 'sub' order size, name desc page 1;")
	q := h.data.queries[0]
	assert.Equal(t, model.DepthIn, q.Depth)
	assert.Equal(t, []string{"/data", "/work/sub"}, q.Paths)
	assert.Equal(t, []query.Sort{{Column: "size", Desc: true}, {Column: "name", Desc: true}}, q.Order)
	assert.Equal(t, 1, q.Page)
	require.Len(t, outs[0].Columns, 2)
	assert.Equal(t, "size", outs[0].Columns[1].Name)
}

func TestFindPageIsBounded(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "find page 288230376151711743;")
	assert.Equal(t, query.MaxPage, h.data.queries[0].Page)

	requireDiagnostic(t, h.run(t, "find page 288230376151711744;"), "page 288230376151711744 is too large")
	requireDiagnostic(t, h.run(t, "find page 9223372036854775807;"), "is too large")
}

func TestFindExpandsHomeDirectory(t *testing.T) {
	t.Setenv("HOME", "/home/ward")
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	h := newHarness(t)
	h.mustRun(t, "find within '~/photos';")
	assert.Equal(t, []string{"/home/ward/photos"}, h.data.queries[0].Paths)
}

func TestFindOtherKinds(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "find wards columns path, due where interval > 3600 group interval;")
	q := h.data.queries[0]
	assert.Equal(t, model.KindWards, q.Kind)
	assert.Empty(t, q.Paths)
	assert.Equal(t, "interval > 3600", q.Predicate)
	assert.Equal(t, []string{"interval"}, q.Group)

	set := h.run(t, "find wards within '/data';")
	requireDiagnostic(t, set, "applies only to filesystem records")

	set = h.run(t, "find hashlogs columns written;")
	requireDiagnostic(t, set, "hashlogs records have no column")
}

func TestAttributeTerms(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "find +readonly;")
	assert.Equal(t, "attributes & 1 = 1", h.data.queries[0].Predicate)

	h.mustRun(t, "find -hidden +system where size > 0;")
	assert.Equal(t, "((attributes & 2 <> 2 AND attributes & 4 = 4) AND size > 0)", h.data.queries[1].Predicate)

	set := h.run(t, "find wards +readonly;")
	requireDiagnostic(t, set, "InvalidUseOfHasOrHasNot")
	assert.Equal(t, 1, set.Diagnostics[0].Row)
	assert.Equal(t, 12, set.Diagnostics[0].Col)
}

func TestWhereErrorsBecomeDiagnostics(t *testing.T) {
	h := newHarness(t)
	set := h.run(t, "find where\n  name > 'a';")
	requireDiagnostic(t, set, "OperatorTypeMismatch")
	assert.Equal(t, 2, set.Diagnostics[0].Row)
	assert.Equal(t, 8, set.Diagnostics[0].Col)

	set = h.run(t, "find where;")
	requireDiagnostic(t, set, "expected a where clause")
}

func TestLexicalErrorFailsWholeScript(t *testing.T) {
	h := newHarness(t)
	set := h.run(t, "find where size > 1;\nfind where size > $;")
	requireDiagnostic(t, set, "unexpected character")
	assert.Equal(t, 2, set.Diagnostics[0].Row)
	assert.Empty(t, h.data.queries)
}

func TestRuntimeFailureHaltsWithoutRollback(t *testing.T) {
	h := newHarness(t)
	set := h.run(t, "exclude '/data/tmp'; find where size > 'x'; scan;")
	requireDiagnostic(t, set, "TypeMismatch")
	assert.Len(t, h.data.exclusions, 1)
	assert.Empty(t, h.scanner.scanned)
}

func TestUnexpectedStatementStart(t *testing.T) {
	h := newHarness(t)
	requireDiagnostic(t, h.run(t, "where size > 1;"), `unexpected "where"`)
	requireDiagnostic(t, h.run(t, "scan '/data' '/work';"), "expected end of statement")
}

func TestEmptyScript(t *testing.T) {
	h := newHarness(t)
	set := h.run(t, "  -- nothing here\n;;")
	assert.True(t, set.OK())
	assert.Empty(t, set.Outcomes)
}

func TestBookmarks(t *testing.T) {
	h := newHarness(t)
	outs := h.mustRun(t, "[docs] = '/data'; [rel] = 'sub'; [docs] = [rel];")
	require.Len(t, outs, 3)
	assert.Equal(t, "/work/sub", h.data.bookmarks["rel"])
	assert.Equal(t, "/work/sub", h.data.bookmarks["docs"])
	assert.Equal(t, "[docs] = '/data';", outs[0].Statement)

	requireDiagnostic(t, h.run(t, "[bad] = '/missing';"), "not an existing directory")
	requireDiagnostic(t, h.run(t, "[bad] = '/data/file.txt';"), "not an existing directory")
	requireDiagnostic(t, h.run(t, "[bad] = [nope];"), "unknown bookmark [nope]")
}

func TestExcludeDynamicKeepsBookmarkText(t *testing.T) {
	h := newHarness(t)
	h.data.bookmarks["proj"] = "/data"

	h.mustRun(t, `exclude dynamic [proj], 'C:\other';`)
	require.Len(t, h.data.exclusions, 2)
	assert.Equal(t, model.Exclusion{Path: "[proj]", Dynamic: true}, h.data.exclusions[0])
	assert.False(t, h.data.exclusions[1].Dynamic)
	assert.True(t, filepath.IsAbs(h.data.exclusions[1].Path))
	assert.NotContains(t, h.data.exclusions[1].Path, "[")

	h.mustRun(t, "exclude [proj];")
	assert.Equal(t, model.Exclusion{Path: "/data"}, h.data.exclusions[2])
}

func TestInclude(t *testing.T) {
	h := newHarness(t)
	h.data.bookmarks["proj"] = "/data"
	outs := h.mustRun(t, "include [proj], 'tmp';")
	assert.Equal(t, []string{"[proj]", "/data", "/work/tmp"}, h.data.removed)
	assert.Equal(t, "3 exclusions removed", outs[0].Message)
}

func TestWard(t *testing.T) {
	h := newHarness(t)
	h.data.bookmarks["docs"] = "/data"

	outs := h.mustRun(t, "ward 1:30 under [docs] where size > 10;")
	w, ok := h.data.wards["/data"]
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, w.Interval)
	assert.Equal(t, "check under '/data' where size > 10;", w.Statement)
	assert.Equal(t, testNow.Add(90*time.Minute), w.Due)
	assert.Contains(t, outs[0].Message, "1 wards created, 0 updated")

	outs = h.mustRun(t, "ward 2 under [docs];")
	assert.Contains(t, outs[0].Message, "0 wards created, 1 updated")
	assert.Equal(t, "check under '/data';", h.data.wards["/data"].Statement)
	assert.Equal(t, 48*time.Hour, h.data.wards["/data"].Interval)

	// The stored statement is itself runnable.
	h.data.paths = []string{"/data/file.txt"}
	h.mustRun(t, w.Statement)
	assert.Equal(t, [][]string{{"/data/file.txt"}}, h.scanner.checked)
}

func TestWardStatementQuotesPaths(t *testing.T) {
	assert.Equal(t, `check within @'C:\data';`, WardStatement(model.DepthWithin, `C:\data`, nil))
	assert.Equal(t, `check in 'it\'s';`, WardStatement(model.DepthIn, "it's", nil))
}

func TestWardIntervals(t *testing.T) {
	tests := []struct {
		src  string
		want time.Duration
	}{
		{"ward 3;", 72 * time.Hour},
		{"ward 1:15;", 75 * time.Minute},
		{"ward 0:0:30;", 30 * time.Second},
		{"ward 1:2:3:4;", 26*time.Hour + 3*time.Minute + 4*time.Second},
		{"ward '90m';", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			h := newHarness(t)
			h.mustRun(t, tt.src)
			assert.Equal(t, tt.want, h.data.wards["/work"].Interval)
		})
	}

	bad := map[string]string{
		"ward 0;":                    "interval must be positive",
		"ward 1:2:3:4:5;":            "at most 4",
		"ward 'soon';":               "invalid interval",
		"ward '-5m';":                "interval must be positive",
		"ward within '/';":           "expected an interval",
		"ward 1:;":                   "expected a number",
		"ward 213504 in '/data';":    "interval too large",
		"ward 106751:23:59:0;":       "interval too large",
		"ward 0:9223372036854775:0;": "interval too large",
	}
	for src, msg := range bad {
		t.Run(src, func(t *testing.T) {
			h := newHarness(t)
			requireDiagnostic(t, h.run(t, src), msg)
		})
	}
}

func TestWatch(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "watch passive '/data';")
	require.Len(t, h.data.watches, 1)
	assert.True(t, h.data.watches[0].Passive)
	assert.Equal(t, testNow, h.data.watches[0].Added)
	assert.Empty(t, h.scanner.scanned)

	outs := h.mustRun(t, "watch;")
	assert.Equal(t, [][]string{{"/work"}}, h.scanner.scanned)
	assert.Equal(t, int64(2), outs[0].Rows[0]["inserted"])
}

func TestScan(t *testing.T) {
	h := newHarness(t)
	h.data.bookmarks["docs"] = "/data"
	outs := h.mustRun(t, "scan '/data', [docs], 'sub';")
	assert.Equal(t, [][]string{{"/data", "/work/sub"}}, h.scanner.scanned)
	assert.Equal(t, "scanned 2 paths", outs[0].Message)
}

func TestScanWithoutRunner(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Scanner = nil })
	requireDiagnostic(t, h.run(t, "scan;"), "needs a scan runner")
}

func TestCheck(t *testing.T) {
	h := newHarness(t)
	h.data.paths = []string{"/data/a.txt", "/data/b.txt"}

	outs := h.mustRun(t, "check under '/data' where extension = '.txt';")
	q := h.data.queries[0]
	assert.True(t, q.FilesOnly)
	assert.Equal(t, model.DepthUnder, q.Depth)
	assert.Equal(t, "extension = '.txt'", q.Predicate)
	assert.Equal(t, [][]string{h.data.paths}, h.scanner.checked)

	out := outs[0]
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "modified", out.Rows[0]["status"])
	assert.Equal(t, "checked 2 files, 1 failed", out.Message)

	requireDiagnostic(t, h.run(t, "check wards;"), "expected end of statement")
}

func TestPurge(t *testing.T) {
	h := newHarness(t)
	outs := h.mustRun(t, "purge hashlogs where logged < now;")
	q := h.data.purges[0]
	assert.Equal(t, model.KindHashLogs, q.Kind)
	assert.Empty(t, q.Paths)
	assert.Equal(t, "logged < 1746327721", q.Predicate)
	assert.Equal(t, "purged 3 hashlogs records", outs[0].Message)

	requireDiagnostic(t, h.run(t, "purge page 1;"), "expected end of statement")
}

func TestSetAndReset(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "set stdout 'out.txt'; set stderr '/tmp/err.log';")
	assert.Equal(t, "/work/out.txt", h.data.settings[model.SettingStdout])
	assert.Equal(t, "/tmp/err.log", h.data.settings[model.SettingStderr])

	h.mustRun(t, "set column size alias 'bytes' width 14; set wards column interval width 8;")
	assert.Equal(t, []model.ColumnOverride{
		{Kind: model.KindFilesystem, Name: "size", Alias: "bytes", Width: 14},
		{Kind: model.KindWards, Name: "interval", Width: 8},
	}, h.data.overrides)

	// The override is visible to the next run's lexer.
	h.mustRun(t, "find where bytes > 1;")
	assert.Equal(t, "size > 1", h.data.queries[0].Predicate)

	h.mustRun(t, "reset stderr; reset column bytes, name;")
	assert.Equal(t, []string{"stderr", "filesystem.size", "filesystem.name"}, h.data.cleared)
}

func TestSetRejectsBadAliases(t *testing.T) {
	tests := map[string]string{
		"set column size alias 'where';":     "reserved word",
		"set column size alias 'hash';":      "already used by column",
		"set column size alias 'two words';": "plain identifier",
		"set column size alias 'hidden';":    "file attribute",
		"set column size width 0;":           "width must be between",
		"set column size;":                   "expected alias or width",
		"set column size, name width 3;":     "single column",
		"set stdout 'a', 'b';":               "single file",
	}
	for src, msg := range tests {
		t.Run(src, func(t *testing.T) {
			h := newHarness(t)
			requireDiagnostic(t, h.run(t, src), msg)
		})
	}
}

func TestAllowList(t *testing.T) {
	allow, err := lexer.NewAllowList([]string{"find", "where", "columnref", "greaterthan", "wholenumber"})
	require.NoError(t, err)
	h := newHarness(t, func(o *Options) { o.Allow = allow })

	h.mustRun(t, "find where size > 1;")
	requireDiagnostic(t, h.run(t, "purge;"), `"purge" is not permitted here`)
}

func TestPanicsBecomeDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.data.panicked = true
	requireDiagnostic(t, h.run(t, "find;"), "internal error: store exploded")
}

func TestNowIsCapturedOncePerRun(t *testing.T) {
	calls := 0
	h := newHarness(t, func(o *Options) {
		o.Now = func() time.Time {
			calls++
			return testNow.Add(time.Duration(calls) * time.Hour)
		}
	})
	h.mustRun(t, "find where written < now; find where accessed < now;")
	require.Len(t, h.data.queries, 2)
	first := strings.TrimPrefix(h.data.queries[0].Predicate, "written < ")
	second := strings.TrimPrefix(h.data.queries[1].Predicate, "accessed < ")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestStatementTextRelexes(t *testing.T) {
	sources := []string{
		`find  filesystem columns path,size within 'C:\dir' where name ~ 'a\\b' and -hidden order size desc;`,
		"find wards where statement ~ @'^check' /* note */ page 0;",
		"set column size alias 'bytes' width 14;",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			h := newHarness(t)
			outs := h.mustRun(t, src)
			require.Len(t, outs, 1)

			want, diags := lexer.Tokenize(src, lexer.Options{})
			require.Empty(t, diags)
			got, diags := lexer.Tokenize(outs[0].Statement, lexer.Options{})
			require.Empty(t, diags)

			a, b := significantTypes(want), significantTypes(got)
			assert.Equal(t, a, b, outs[0].Statement)
		})
	}
}

func significantTypes(tokens []lexer.Token) []lexer.Type {
	var out []lexer.Type
	for _, tok := range tokens {
		if tok.Significant() {
			out = append(out, tok.Type)
		}
	}
	return out
}
