package scan

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/store"
)

// Check re-hashes each path and compares it with the stored hash. It does
// not modify the store.
func (r *Runner) Check(ctx context.Context, paths []string) ([]model.CheckResult, error) {
	results := make([]model.CheckResult, len(paths))
	var indexed []string
	for i, p := range paths {
		results[i].Path = p
		rec, err := r.store.File(ctx, p)
		switch {
		case errors.Is(err, store.ErrNotFound):
			results[i].Status = model.CheckUnindexed
			continue
		case err != nil:
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		results[i].Expected = rec.Hash
		indexed = append(indexed, p)
	}

	hashes, err := r.hashAll(ctx, indexed)
	if err != nil {
		return nil, err
	}
	failed := 0
	for i := range results {
		res := &results[i]
		if res.Status == model.CheckUnindexed {
			failed++
			continue
		}
		h := hashes[res.Path]
		switch {
		case h.err != nil:
			if !errors.Is(h.err, os.ErrNotExist) {
				r.log.Warn("could not hash file during check", "path", res.Path, "error", h.err)
			}
			res.Status = model.CheckMissing
		case h.sum == res.Expected:
			res.Status = model.CheckOK
			res.Actual = h.sum
		default:
			res.Status = model.CheckModified
			res.Actual = h.sum
		}
		if res.Status != model.CheckOK {
			failed++
		}
	}
	r.log.Info("checked", "files", len(results), "failed", failed)
	return results, nil
}
