package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/config"
	"github.com/hashward/hdsl/internal/lexer"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// resetCommandState clears flag values and Changed marks left over from a
// previous Execute on the shared command tree.
func resetCommandState(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCommandState(sub)
	}
}

type testEnv struct {
	dir    string
	config string
	db     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		db:     filepath.Join(dir, "state", "hdsl.db"),
	}
}

func (e *testEnv) run(t *testing.T, stdin io.Reader, args ...string) cliResult {
	t.Helper()
	resetCommandState(rootCmd)
	cfg, logger = nil, nil
	t.Cleanup(func() { cfg, logger = nil, nil })

	var stdout, stderr bytes.Buffer
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// files creates a small tree and returns its root.
func (e *testEnv) files(t *testing.T) string {
	t.Helper()
	root := filepath.Join(e.dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.log"), []byte("a longer file body"), 0o644))
	return root
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *ErrorInfo      `json:"error"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), "output: %s", out)
	return env
}

type setView struct {
	Outcomes []struct {
		Statement string           `json:"statement"`
		Rows      []map[string]any `json:"rows"`
		Total     int              `json:"total"`
		Message   string           `json:"message"`
	} `json:"outcomes"`
}

func TestExecScanAndFindJSON(t *testing.T) {
	env := newTestEnv(t)
	root := lexer.QuoteString(env.files(t))

	script := fmt.Sprintf("scan %s; find columns path, size within %s -directory order size;", root, root)
	res := env.run(t, nil, "exec", "--json", "-e", script)
	require.NoError(t, res.err, res.stderr)

	out := decodeEnvelope(t, res.stdout)
	require.True(t, out.OK)
	var set setView
	require.NoError(t, json.Unmarshal(out.Data, &set))
	require.Len(t, set.Outcomes, 2)
	assert.Equal(t, "scanned 1 paths", set.Outcomes[0].Message)

	find := set.Outcomes[1]
	assert.Equal(t, 2, find.Total)
	require.Len(t, find.Rows, 2)
	assert.Equal(t, filepath.Join(env.dir, "data", "a.txt"), find.Rows[0]["path"])
	assert.EqualValues(t, 5, find.Rows[0]["size"])
}

func TestExecTableOutput(t *testing.T) {
	env := newTestEnv(t)
	root := lexer.QuoteString(env.files(t))

	res := env.run(t, nil, "exec", "-e", fmt.Sprintf("scan %s; find columns name, size within %s -directory;", root, root))
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "a.txt")
	assert.Contains(t, res.stdout, "5 B")
	assert.Contains(t, res.stdout, "page 1 of 1 (2 records)")
}

func TestExecDiagnosticsGoToStderr(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "exec", "-e", "find szie;")
	require.ErrorIs(t, res.err, errReported)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, `1:6: unknown identifier "szie" (did you mean "size"?)`)
	assert.Contains(t, res.stderr, "1 │ find szie;")
}

func TestExecJSONFailureEnvelope(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "exec", "--json", "-e", "find szie;")
	require.ErrorIs(t, res.err, errReported)

	out := decodeEnvelope(t, res.stdout)
	assert.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrScriptFailed, out.Error.Code)
	assert.Contains(t, out.Error.Message, "szie")
}

func TestExecYAMLOutput(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "exec", "--yaml", "-e", "find watches;")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "ok: true")
	assert.Contains(t, res.stdout, "statement: find watches;")
}

func TestExecReadsFileAndStdin(t *testing.T) {
	env := newTestEnv(t)
	script := filepath.Join(env.dir, "q.hdsl")
	require.NoError(t, os.WriteFile(script, []byte("find wards;\n"), 0o644))

	res := env.run(t, nil, "exec", "--json", script)
	require.NoError(t, res.err, res.stderr)
	assert.True(t, decodeEnvelope(t, res.stdout).OK)

	res = env.run(t, strings.NewReader("find watches;"), "exec", "--json", "-")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "find watches;")

	res = env.run(t, nil, "exec", "-e", "find;", script)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "not both")

	res = env.run(t, nil, "exec", filepath.Join(env.dir, "missing.hdsl"))
	require.Error(t, res.err)
}

func TestExecHonoursRedirection(t *testing.T) {
	env := newTestEnv(t)
	target := filepath.Join(env.dir, "out.txt")

	res := env.run(t, nil, "exec", "-e", fmt.Sprintf("set stdout %s;", lexer.QuoteString(target)))
	require.NoError(t, res.err, res.stderr)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stdout redirected to "+target)

	res = env.run(t, nil, "exec", "-e", "reset stdout;")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "stdout restored to the console")
}

func TestAllowFlagRestrictsScripts(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "exec", "--allow", "find,watches", "-e", "find watches;")
	require.NoError(t, res.err, res.stderr)

	res = env.run(t, nil, "exec", "--allow", "find,watches", "-e", "scan;")
	require.ErrorIs(t, res.err, errReported)
	assert.Contains(t, res.stderr, `"scan" is not permitted here`)

	res = env.run(t, nil, "exec", "--allow", "bogus", "-e", "scan;")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unknown token names")
}

func TestTokensCommand(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "tokens", "--json", "-e", "find where size > 10;")
	require.NoError(t, res.err, res.stderr)
	out := decodeEnvelope(t, res.stdout)
	require.True(t, out.OK)

	var data tokensData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	var types []string
	for _, tok := range data.Tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []string{"find", "where", "columnref", "greaterthan", "wholenumber", "eol", "eol", "eof"}, types)

	res = env.run(t, nil, "tokens", "-e", "find;")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"find"`)
	assert.Contains(t, res.stdout, "1:1")
}

func TestWardsRunNothingDue(t *testing.T) {
	env := newTestEnv(t)
	root := lexer.QuoteString(env.files(t))

	res := env.run(t, nil, "exec", "-e", fmt.Sprintf("ward 1 within %s;", root))
	require.NoError(t, res.err, res.stderr)

	res = env.run(t, nil, "wards", "run")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "no wards are due")

	res = env.run(t, nil, "wards", "run", "--json")
	require.NoError(t, res.err, res.stderr)
	out := decodeEnvelope(t, res.stdout)
	assert.True(t, out.OK)
	assert.JSONEq(t, "[]", string(out.Data))
}

func TestWatchNeedsActiveWatches(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "watch")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no active watches")
}

func TestDocsCommand(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "docs")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "statements")
	assert.Contains(t, res.stdout, "expressions")

	res = env.run(t, nil, "docs", "statements", "--raw")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "# Statements"))

	res = env.run(t, nil, "docs", "nope")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `unknown topic "nope"`)
}

func TestDocsIndexPointsAtBundledFiles(t *testing.T) {
	idx, err := loadDocsIndex(os.DirFS("../../docs"))
	require.NoError(t, err)
	require.NotEmpty(t, idx.Topics)
	for _, topic := range idx.Topics {
		_, err := os.Stat(filepath.Join("../../docs", topic.Path))
		assert.NoError(t, err, topic.ID)
	}
}

func TestInitCreatesConfigAndDatabase(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "init")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "created config")
	assert.FileExists(t, env.config)
	assert.FileExists(t, env.db)

	res = env.run(t, nil, "init")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "already exists")
}

func TestConfigSetWritesOnlyGivenSettings(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "config", "set", "--color", "never", "--workers", "3")
	require.NoError(t, res.err, res.stderr)

	saved, err := config.LoadFrom(env.config)
	require.NoError(t, err)
	assert.Equal(t, "never", saved.Output.Color)
	assert.Equal(t, 3, saved.Scan.Workers)
	assert.Empty(t, saved.Database, "--db must not be persisted")

	res = env.run(t, nil, "config", "set")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no settings given")

	res = env.run(t, nil, "config", "set", "--color", "sometimes")
	require.Error(t, res.err)
}

func TestVersionJSON(t *testing.T) {
	env := newTestEnv(t)

	res := env.run(t, nil, "version", "--json")
	require.NoError(t, res.err)
	out := decodeEnvelope(t, res.stdout)
	assert.True(t, out.OK)

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}
