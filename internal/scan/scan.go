// Package scan walks the filesystem, hashes files and keeps the filesystem
// records in the store in step with what it finds.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/store"
)

// Store is the part of the data store the scanner reads and writes.
type Store interface {
	File(ctx context.Context, path string) (model.FileRecord, error)
	FilesWithin(ctx context.Context, root string) (map[string]model.FileRecord, error)
	Exclusions(ctx context.Context) ([]model.Exclusion, error)
	ExpandBookmarks(ctx context.Context, text string) (string, error)
	ApplyScan(ctx context.Context, b store.ScanBatch) error
}

// Options configure a Runner.
type Options struct {
	// Fs is the filesystem to scan. Defaults to the OS filesystem.
	Fs     afero.Fs
	Logger *slog.Logger
	// Now stamps firstscan, lastscan and hash logs. Defaults to time.Now.
	Now func() time.Time
	// Workers bounds concurrent hashing. Defaults to GOMAXPROCS.
	Workers int
}

// Runner scans and checks paths against a store.
type Runner struct {
	store   Store
	fs      afero.Fs
	log     *slog.Logger
	now     func() time.Time
	workers int
}

// New returns a Runner with defaults filled in.
func New(st Store, opts Options) *Runner {
	r := &Runner{store: st, fs: opts.Fs, log: opts.Logger, now: opts.Now, workers: opts.Workers}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Scan walks every path, writing inserted, changed and vanished records
// to the store. Excluded paths are skipped and their records kept.
func (r *Runner) Scan(ctx context.Context, paths []string) (model.ScanSummary, error) {
	excluded, err := r.exclusions(ctx)
	if err != nil {
		return model.ScanSummary{}, err
	}
	var total model.ScanSummary
	for _, root := range paths {
		s, err := r.scanRoot(ctx, filepath.Clean(root), excluded)
		if err != nil {
			return total, fmt.Errorf("scan %s: %w", root, err)
		}
		total.Add(s)
	}
	return total, nil
}

var unresolvedRef = regexp.MustCompile(`\[[^\[\]]+\]`)

// exclusions returns the excluded paths, expanding dynamic exclusions
// against the bookmarks as they are now.
func (r *Runner) exclusions(ctx context.Context) ([]string, error) {
	list, err := r.store.Exclusions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		p := e.Path
		if e.Dynamic {
			if p, err = r.store.ExpandBookmarks(ctx, p); err != nil {
				return nil, fmt.Errorf("expand exclusion %s: %w", e.Path, err)
			}
			if unresolvedRef.MatchString(p) {
				r.log.Debug("exclusion references an unknown bookmark", "exclusion", e.Path)
				continue
			}
		}
		out = append(out, filepath.Clean(p))
	}
	return out, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(dir, sep)+sep)
}

func withinAny(path string, dirs []string) bool {
	for _, d := range dirs {
		if within(path, d) {
			return true
		}
	}
	return false
}

type pending struct {
	rec    model.FileRecord
	old    model.FileRecord
	exists bool
}

func (r *Runner) scanRoot(ctx context.Context, root string, excluded []string) (model.ScanSummary, error) {
	var sum model.ScanSummary
	now := time.Unix(r.now().Unix(), 0).UTC()

	existing, err := r.store.FilesWithin(ctx, root)
	if err != nil {
		return sum, err
	}

	var batch store.ScanBatch
	var toHash []pending
	seen := make(map[string]bool, len(existing))
	// kept lists directories whose records must survive even though the
	// walk did not reach them.
	kept := append([]string(nil), excluded...)

	walkErr := afero.Walk(r.fs, root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root && errors.Is(err, os.ErrNotExist) {
				r.log.Debug("scan root does not exist", "path", root)
				return nil
			}
			r.log.Warn("skipping unreadable path", "path", path, "error", err)
			sum.Skipped++
			kept = append(kept, path)
			return nil
		}
		if withinAny(path, excluded) {
			sum.Skipped++
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		seen[path] = true
		p := pending{rec: fileRecord(path, info, now)}
		p.old, p.exists = existing[path]
		if p.exists {
			p.rec.FirstScan = p.old.FirstScan
			p.rec.Created = p.old.Created
			if unchanged(p.old, p.rec) {
				p.rec.Hash = p.old.Hash
				batch.Upserts = append(batch.Upserts, p.rec)
				sum.Unchanged++
				return nil
			}
		}
		if p.rec.IsDir() || p.rec.Attributes&model.AttrReparsePoint != 0 {
			batch.Upserts = append(batch.Upserts, p.rec)
			count(&sum, p.exists)
			return nil
		}
		toHash = append(toHash, p)
		return nil
	})
	if walkErr != nil {
		return sum, walkErr
	}

	paths := make([]string, len(toHash))
	for i, p := range toHash {
		paths[i] = p.rec.Path
	}
	hashes, err := r.hashAll(ctx, paths)
	if err != nil {
		return sum, err
	}
	for _, p := range toHash {
		h := hashes[p.rec.Path]
		if h.err != nil {
			r.log.Warn("skipping file that could not be hashed", "path", p.rec.Path, "error", h.err)
			sum.Skipped++
			continue
		}
		p.rec.Hash = h.sum
		batch.Upserts = append(batch.Upserts, p.rec)
		count(&sum, p.exists)
		if !p.exists || p.old.Hash != p.rec.Hash {
			batch.HashLogs = append(batch.HashLogs, model.HashLog{
				Path: p.rec.Path, Hash: p.rec.Hash, Size: p.rec.Size, Logged: now,
			})
		}
	}

	for path := range existing {
		if !seen[path] && !withinAny(path, kept) {
			batch.Deletes = append(batch.Deletes, path)
			sum.Deleted++
		}
	}

	if !batch.Empty() {
		if err := r.store.ApplyScan(ctx, batch); err != nil {
			return sum, err
		}
	}
	r.log.Info("scanned", "root", root,
		"inserted", sum.Inserted, "updated", sum.Updated, "deleted", sum.Deleted,
		"unchanged", sum.Unchanged, "skipped", sum.Skipped)
	return sum, nil
}

func count(sum *model.ScanSummary, existed bool) {
	if existed {
		sum.Updated++
	} else {
		sum.Inserted++
	}
}

// unchanged reports whether a rescan can reuse the stored record's hash.
func unchanged(old, cur model.FileRecord) bool {
	if old.Size != cur.Size || old.Attributes != cur.Attributes || !old.Written.Equal(cur.Written) {
		return false
	}
	return cur.IsDir() || cur.Attributes&model.AttrReparsePoint != 0 || old.Hash != ""
}

func fileRecord(path string, info os.FileInfo, now time.Time) model.FileRecord {
	mod := time.Unix(info.ModTime().Unix(), 0).UTC()
	rec := model.FileRecord{
		Path:       path,
		Attributes: Attributes(info),
		Created:    mod,
		Written:    mod,
		Accessed:   mod,
		FirstScan:  now,
		LastScan:   now,
	}
	if !info.IsDir() {
		rec.Size = info.Size()
	}
	return rec
}

// Attributes derives attribute bits from file info.
func Attributes(info os.FileInfo) int64 {
	var attrs int64
	mode := info.Mode()
	if mode.IsDir() {
		attrs |= model.AttrDirectory
	}
	if mode.Perm()&0o200 == 0 {
		attrs |= model.AttrReadOnly
	}
	if strings.HasPrefix(info.Name(), ".") {
		attrs |= model.AttrHidden
	}
	if mode&os.ModeSymlink != 0 {
		attrs |= model.AttrReparsePoint
	}
	if mode&(os.ModeDevice|os.ModeCharDevice) != 0 {
		attrs |= model.AttrDevice
	}
	if mode&os.ModeTemporary != 0 {
		attrs |= model.AttrTemporary
	}
	if attrs == 0 {
		attrs = model.AttrNormal
	}
	return attrs
}

type hashResult struct {
	path string
	sum  string
	err  error
}

// hashAll hashes paths on a bounded pool. Per-file failures are reported
// in the result; only cancellation fails the call.
func (r *Runner) hashAll(ctx context.Context, paths []string) (map[string]hashResult, error) {
	out := make(map[string]hashResult, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	p := pool.NewWithResults[hashResult]().WithContext(ctx).WithMaxGoroutines(r.workers)
	for _, path := range paths {
		path := path
		p.Go(func(ctx context.Context) (hashResult, error) {
			sum, err := r.hashFile(ctx, path)
			return hashResult{path: path, sum: sum, err: err}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, res := range results {
		out[res.path] = res
	}
	return out, nil
}

// HashFile returns the hex SHA-256 digest of a file's content.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (r *Runner) hashFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return HashFile(r.fs, path)
}
