// Package watcher rescans the paths of non-passive watches as they change on
// disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hashward/hdsl/internal/model"
)

// Scanner rescans changed paths.
type Scanner interface {
	Scan(ctx context.Context, paths []string) (model.ScanSummary, error)
}

// Watcher monitors directory trees and feeds debounced changes to a Scanner.
type Watcher struct {
	roots   []string
	scanner Scanner
	log     *slog.Logger
	now     func() time.Time

	debounceDelay time.Duration

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time
	mu        sync.Mutex
	ready     chan struct{}

	onScan func(paths []string, summary model.ScanSummary, err error)
}

// Config holds configuration options for the Watcher.
type Config struct {
	Roots         []string
	Scanner       Scanner
	DebounceDelay time.Duration // Default: 250ms
	Logger        *slog.Logger
	// OnScan is called after each debounced rescan.
	OnScan func(paths []string, summary model.ScanSummary, err error)
}

// DefaultDebounce is used when Config.DebounceDelay is zero.
const DefaultDebounce = 250 * time.Millisecond

// Roots returns the paths of the non-passive watches.
func Roots(watches []model.Watch) []string {
	var roots []string
	for _, w := range watches {
		if !w.Passive {
			roots = append(roots, w.Path)
		}
	}
	return roots
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if cfg.Scanner == nil {
		return nil, errors.New("scanner is required")
	}
	debounce := cfg.DebounceDelay
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		roots:         cfg.Roots,
		scanner:       cfg.Scanner,
		log:           log.With("component", "watcher"),
		now:           time.Now,
		debounceDelay: debounce,
		pending:       make(map[string]time.Time),
		ready:         make(chan struct{}),
		onScan:        cfg.OnScan,
	}, nil
}

// Ready is closed once every root is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start watches the roots until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	for _, root := range w.roots {
		if err := w.addWatchRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		w.log.Info("watching", "path", root)
	}
	close(w.ready)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent queues the changed path for a rescan. New directories are
// watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(event.Name)
	w.log.Debug("event", "op", event.Op.String(), "path", path)

	if event.Op&fsnotify.Create != 0 && w.fsWatcher != nil {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addWatchRecursive(path); err != nil {
				w.log.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
	}
	w.schedule(path)
}

// schedule adds a path to the pending queue, restarting its debounce delay.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = w.now()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceDelay / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending rescans every path whose debounce delay has passed.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := w.now()
	var ready []string
	for path, scheduledAt := range w.pending {
		if now.Sub(scheduledAt) >= w.debounceDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	sort.Strings(ready)
	ready = collapse(ready)

	summary, err := w.scanner.Scan(ctx, ready)
	if err != nil {
		w.log.Warn("rescan failed", "paths", ready, "error", err)
	} else {
		w.log.Info("rescanned", "paths", len(ready),
			"inserted", summary.Inserted, "updated", summary.Updated, "deleted", summary.Deleted)
	}
	if w.onScan != nil {
		w.onScan(ready, summary, err)
	}
}

// collapse drops duplicates and paths that lie inside another path of the
// sorted list.
func collapse(sorted []string) []string {
	var out []string
	for _, p := range sorted {
		covered := false
		for _, q := range out {
			if within(p, q) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(dir, sep)+sep)
}

// addWatchRecursive adds a directory and all subdirectories to the watcher.
func (w *Watcher) addWatchRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsWatcher.Add(filepath.Dir(root))
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := w.fsWatcher.Add(path); err != nil {
				w.log.Debug("failed to watch", "path", path, "error", err)
			}
		}
		return nil
	})
}
