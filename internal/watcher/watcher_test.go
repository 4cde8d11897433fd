package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashward/hdsl/internal/model"
)

type recordingScanner struct {
	mu    sync.Mutex
	calls [][]string
}

func (s *recordingScanner) Scan(_ context.Context, paths []string) (model.ScanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), paths...))
	return model.ScanSummary{Updated: len(paths)}, nil
}

func (s *recordingScanner) scanned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		out = append(out, c...)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Scanner: &recordingScanner{}})
	assert.Error(t, err)
	_, err = New(Config{Roots: []string{"/x"}})
	assert.Error(t, err)
}

func TestRootsSkipsPassiveWatches(t *testing.T) {
	roots := Roots([]model.Watch{{Path: "/a"}, {Path: "/b", Passive: true}, {Path: "/c"}})
	assert.Equal(t, []string{"/a", "/c"}, roots)
}

func TestDebounce(t *testing.T) {
	scanner := &recordingScanner{}
	w, err := New(Config{Roots: []string{"/data"}, Scanner: scanner, DebounceDelay: time.Second, Logger: quietLogger()})
	require.NoError(t, err)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	w.handleEvent(fsnotify.Event{Name: "/data/a.txt", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/data/a.txt", Op: fsnotify.Chmod})
	clock = clock.Add(500 * time.Millisecond)
	w.handleEvent(fsnotify.Event{Name: "/data/b.txt", Op: fsnotify.Create})

	w.processPending(context.Background())
	assert.Empty(t, scanner.scanned())

	clock = clock.Add(600 * time.Millisecond)
	w.processPending(context.Background())
	assert.Equal(t, []string{"/data/a.txt"}, scanner.scanned())

	clock = clock.Add(time.Second)
	w.processPending(context.Background())
	assert.Equal(t, []string{"/data/a.txt", "/data/b.txt"}, scanner.scanned())
}

func TestCollapse(t *testing.T) {
	got := collapse([]string{"/a", "/a-b", "/a/c", "/a/c", "/b/x", "/b/xy"})
	assert.Equal(t, []string{"/a", "/a-b", "/b/x", "/b/xy"}, got)
}

func TestStartRescansChangedFiles(t *testing.T) {
	dir := t.TempDir()
	scanner := &recordingScanner{}
	var mu sync.Mutex
	var summaries []model.ScanSummary
	w, err := New(Config{
		Roots:         []string{dir},
		Scanner:       scanner,
		DebounceDelay: 20 * time.Millisecond,
		Logger:        quietLogger(),
		OnScan: func(_ []string, s model.ScanSummary, _ error) {
			mu.Lock()
			summaries = append(summaries, s)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}

	target := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		for _, p := range scanner.scanned() {
			if p == target {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	mu.Lock()
	assert.NotEmpty(t, summaries)
	mu.Unlock()
}
