package interp

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/where"
)

// bookmark handles `[name] = path;`.
func (r *run) bookmark() (outcome.Outcome, error) {
	nameTok := r.next()
	if _, err := r.expect("=", lexer.TokenEquals); err != nil {
		return outcome.Outcome{}, err
	}
	args, err := r.parsePaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	if len(args) > 1 {
		return outcome.Outcome{}, errorAt(args[1].tok, "a bookmark names a single path")
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	path, err := r.resolve(args[0])
	if err != nil {
		return outcome.Outcome{}, err
	}
	if ok, err := afero.IsDir(r.in.opts.Fs, path); err != nil || !ok {
		return outcome.Outcome{}, errorAt(args[0].tok, "%s is not an existing directory", path)
	}

	name := nameTok.Value.(string)
	if err := r.in.opts.Data.SaveBookmark(r.ctx, model.Bookmark{Name: name, Path: path}); err != nil {
		return outcome.Outcome{}, fmt.Errorf("save bookmark [%s]: %w", name, err)
	}
	return outcome.Message(text, fmt.Sprintf("bookmark [%s] = %s", name, path)), nil
}

var summaryColumns = []outcome.Column{
	{Name: "inserted", Title: "inserted", Type: model.TypeWholeNumber, Width: 9},
	{Name: "updated", Title: "updated", Type: model.TypeWholeNumber, Width: 9},
	{Name: "deleted", Title: "deleted", Type: model.TypeWholeNumber, Width: 9},
	{Name: "unchanged", Title: "unchanged", Type: model.TypeWholeNumber, Width: 9},
	{Name: "skipped", Title: "skipped", Type: model.TypeWholeNumber, Width: 9},
}

func summaryOutcome(text string, paths []string, s model.ScanSummary) outcome.Outcome {
	return outcome.Outcome{
		Statement: text,
		Kind:      model.KindFilesystem,
		Columns:   summaryColumns,
		Rows: []outcome.Row{{
			"inserted":  int64(s.Inserted),
			"updated":   int64(s.Updated),
			"deleted":   int64(s.Deleted),
			"unchanged": int64(s.Unchanged),
			"skipped":   int64(s.Skipped),
		}},
		PageCount: 1,
		Total:     1,
		Message:   fmt.Sprintf("scanned %d paths", len(paths)),
	}
}

// defaultPaths resolves args, or returns the working directory when the
// statement named no paths.
func (r *run) defaultPaths(args []pathArg) ([]string, error) {
	if len(args) == 0 {
		return []string{r.absolute(r.in.opts.WorkDir)}, nil
	}
	return r.resolveAll(args)
}

func (r *run) scan() (outcome.Outcome, error) {
	r.next()
	args, err := r.parseOptionalPaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}
	scanner, err := r.scanner()
	if err != nil {
		return outcome.Outcome{}, err
	}
	paths, err := r.defaultPaths(args)
	if err != nil {
		return outcome.Outcome{}, err
	}

	summary, err := scanner.Scan(r.ctx, paths)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("scan: %w", err)
	}
	return summaryOutcome(text, paths, summary), nil
}

// exclude handles `exclude [dynamic] path,...;`. Dynamic exclusions keep
// bookmark references unexpanded; other paths are stored resolved and static.
func (r *run) exclude() (outcome.Outcome, error) {
	r.next()
	_, dynamic := r.accept(lexer.TokenDynamic)
	args, err := r.parsePaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	exclusions := make([]model.Exclusion, 0, len(args))
	for _, a := range args {
		if dynamic && hasBookmarkRef(a.raw) {
			exclusions = append(exclusions, model.Exclusion{Path: a.raw, Dynamic: true})
			continue
		}
		p, err := r.resolve(a)
		if err != nil {
			return outcome.Outcome{}, err
		}
		exclusions = append(exclusions, model.Exclusion{Path: p})
	}
	if err := r.in.opts.Data.AddExclusions(r.ctx, exclusions); err != nil {
		return outcome.Outcome{}, fmt.Errorf("add exclusions: %w", err)
	}
	return outcome.Message(text, fmt.Sprintf("%d exclusions added", len(exclusions))), nil
}

// include removes exclusions, matching either the expanded path or the
// text of a dynamic exclusion.
func (r *run) include() (outcome.Outcome, error) {
	r.next()
	args, err := r.parsePaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	var paths []string
	for _, a := range args {
		dyn := hasBookmarkRef(a.raw)
		if dyn {
			paths = append(paths, a.raw)
		}
		p, err := r.resolve(a)
		if err != nil {
			if dyn {
				continue
			}
			return outcome.Outcome{}, err
		}
		paths = append(paths, p)
	}
	n, err := r.in.opts.Data.RemoveExclusions(r.ctx, paths)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("remove exclusions: %w", err)
	}
	return outcome.Message(text, fmt.Sprintf("%d exclusions removed", n)), nil
}

// ward handles `ward interval [depth path,...] [where ...];`, storing a
// check statement per resolved path.
func (r *run) ward() (outcome.Outcome, error) {
	r.next()
	interval, err := r.parseInterval()
	if err != nil {
		return outcome.Outcome{}, err
	}
	spec, err := r.parseFind(findGrammar{})
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	now := r.eval.Now
	created, updated := 0, 0
	for _, p := range spec.q.Paths {
		w := model.Ward{
			Path:      p,
			Interval:  interval,
			Statement: WardStatement(spec.q.Depth, p, spec.filter),
			Due:       now.Add(interval),
			Created:   now,
		}
		isNew, err := r.in.opts.Data.SaveWard(r.ctx, w)
		if err != nil {
			return outcome.Outcome{}, fmt.Errorf("save ward %s: %w", p, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	return outcome.Message(text, fmt.Sprintf("%d wards created, %d updated, every %s", created, updated, interval)), nil
}

// WardStatement builds the check statement a ward re-runs for path.
func WardStatement(depth model.DepthMode, path string, filter *where.Tree) string {
	stmt := fmt.Sprintf("check %s %s", depth, lexer.QuoteString(path))
	if filter != nil && filter.Text != "" {
		stmt += " " + filter.Text
	}
	return stmt + ";"
}

// watch handles `watch [passive] [path,...];`. A non-passive watch scans
// its paths straight away.
func (r *run) watch() (outcome.Outcome, error) {
	r.next()
	_, passive := r.accept(lexer.TokenPassive)
	args, err := r.parseOptionalPaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}
	var scanner ScanRunner
	if !passive {
		if scanner, err = r.scanner(); err != nil {
			return outcome.Outcome{}, err
		}
	}
	paths, err := r.defaultPaths(args)
	if err != nil {
		return outcome.Outcome{}, err
	}

	for _, p := range paths {
		w := model.Watch{Path: p, Passive: passive, Added: r.eval.Now}
		if err := r.in.opts.Data.SaveWatch(r.ctx, w); err != nil {
			return outcome.Outcome{}, fmt.Errorf("save watch %s: %w", p, err)
		}
	}
	if passive {
		return outcome.Message(text, fmt.Sprintf("%d passive watches added", len(paths))), nil
	}

	summary, err := scanner.Scan(r.ctx, paths)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("initial scan: %w", err)
	}
	out := summaryOutcome(text, paths, summary)
	out.Message = fmt.Sprintf("%d watches added, %s", len(paths), out.Message)
	return out, nil
}
