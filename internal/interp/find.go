package interp

import (
	"fmt"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/query"
	"github.com/hashward/hdsl/internal/where"
)

// findGrammar selects which optional clauses of the find sub-grammar a
// statement accepts. Depth, paths, attribute terms and where are always
// accepted.
type findGrammar struct {
	kind       bool
	columns    bool
	groupOrder bool
	page       bool
}

// findSpec is a parsed find sub-grammar.
type findSpec struct {
	q       *query.FindQuery
	columns []catalog.Column
	// filter combines attribute terms and the where clause; nil when the
	// statement has neither.
	filter *where.Tree
}

func (r *run) parseKind() model.RecordKind {
	tok, ok := r.accept(lexer.TokenFilesystem, lexer.TokenWards, lexer.TokenWatches, lexer.TokenHashLogs)
	if !ok {
		return model.KindFilesystem
	}
	kind, _ := model.ParseRecordKind(tok.Type.String())
	return kind
}

func depthOf(t lexer.Type) model.DepthMode {
	switch t {
	case lexer.TokenIn:
		return model.DepthIn
	case lexer.TokenUnder:
		return model.DepthUnder
	}
	return model.DepthWithin
}

func (r *run) parseFind(g findGrammar) (*findSpec, error) {
	kind := model.KindFilesystem
	if g.kind {
		kind = r.parseKind()
	}
	spec := &findSpec{q: query.New(kind)}

	if g.columns {
		if _, ok := r.accept(lexer.TokenColumns); ok {
			cols, err := r.parseColumns(kind)
			if err != nil {
				return nil, err
			}
			spec.columns = cols
		}
	}

	var paths []pathArg
	if tok, ok := r.accept(lexer.TokenIn, lexer.TokenWithin, lexer.TokenUnder); ok {
		if kind != model.KindFilesystem {
			return nil, errorAt(tok, "%q applies only to filesystem records", tok.Text)
		}
		spec.q.Depth = depthOf(tok.Type)
		args, err := r.parsePaths()
		if err != nil {
			return nil, err
		}
		paths = args
	}

	if err := r.parseFilter(spec, kind); err != nil {
		return nil, err
	}

	if g.groupOrder {
		if _, ok := r.accept(lexer.TokenGroup); ok {
			cols, err := r.parseColumns(kind)
			if err != nil {
				return nil, err
			}
			spec.q.Group = columnNames(cols)
		}
		if _, ok := r.accept(lexer.TokenOrder); ok {
			cols, err := r.parseColumns(kind)
			if err != nil {
				return nil, err
			}
			dir, _ := r.accept(lexer.TokenAsc, lexer.TokenDesc)
			spec.q.SetOrder(columnNames(cols), dir.Type == lexer.TokenDesc)
		}
	}

	if g.page {
		if _, ok := r.accept(lexer.TokenPage); ok {
			tok, err := r.expect("a page number", lexer.TokenWholeNumber)
			if err != nil {
				return nil, err
			}
			page := tok.Value.(int64)
			if page > query.MaxPage {
				return nil, errorAt(tok, "page %d is too large, at most %d", page, int64(query.MaxPage))
			}
			spec.q.Page = int(page)
		}
	}

	if kind == model.KindFilesystem {
		if len(paths) == 0 {
			spec.q.Paths = []string{r.absolute(r.in.opts.WorkDir)}
		} else {
			resolved, err := r.resolveAll(paths)
			if err != nil {
				return nil, err
			}
			spec.q.Paths = resolved
		}
	}
	if len(spec.columns) == 0 {
		spec.columns = r.cat.Columns(kind)
	}
	return spec, nil
}

// parseFilter reads leading +attr / -attr terms and an optional where
// clause, compiles them into one tree and dry-runs it.
func (r *run) parseFilter(spec *findSpec, kind model.RecordKind) error {
	start := r.pos
	var root *where.Node
	for r.peek().Is(lexer.TokenHas, lexer.TokenHasNot) {
		op := r.next()
		attr := r.next()
		n, err := where.Attribute(op, attr, kind)
		if err != nil {
			return err
		}
		root = where.And(root, n)
	}

	if _, ok := r.accept(lexer.TokenWhere); ok {
		end := r.pos
		for !r.toks[end].Is(lexer.TokenGroup, lexer.TokenOrder, lexer.TokenPage, lexer.TokenEndOfLine, lexer.TokenEndOfFile) {
			end++
		}
		tree, err := where.Compile(r.toks[r.pos:end], kind, r.cat)
		if err != nil {
			if r.pos == end {
				return unexpected(r.toks[end], "a where clause")
			}
			return err
		}
		r.pos = end
		root = where.And(root, tree.Root)
	}

	if root == nil {
		return nil
	}
	tree := &where.Tree{Root: root, Text: lexer.Reconstruct(r.toks[start:r.pos]), Kind: kind}
	if err := tree.Check(r.cat, r.eval); err != nil {
		return err
	}
	spec.filter = tree
	spec.q.Predicate = tree.SQL(r.eval)
	return nil
}

func columnName(tok lexer.Token) (string, bool) {
	if tok.Type == lexer.TokenColumnRef {
		c, ok := tok.Value.(catalog.Column)
		return c.Name, ok
	}
	return lexer.Slug(tok.Type)
}

// parseColumns reads a comma-separated list of one or more columns of kind.
func (r *run) parseColumns(kind model.RecordKind) ([]catalog.Column, error) {
	var cols []catalog.Column
	for {
		tok := r.peek()
		name, ok := columnName(tok)
		if !ok {
			return nil, unexpected(tok, "a column name")
		}
		col, found := r.cat.Lookup(kind, name)
		if !found {
			if hint := catalog.Suggest(r.cat, kind, tok.Text); hint != "" {
				return nil, errorAt(tok, "%s records have no column %q (did you mean %q?)", kind, tok.Text, hint)
			}
			return nil, errorAt(tok, "%s records have no column %q", kind, tok.Text)
		}
		r.pos++
		cols = append(cols, col)
		if _, ok := r.accept(lexer.TokenComma); !ok {
			return cols, nil
		}
	}
}

func columnNames(cols []catalog.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func (r *run) find() (outcome.Outcome, error) {
	r.next()
	spec, err := r.parseFind(findGrammar{kind: true, columns: true, groupOrder: true, page: true})
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	records, total, err := r.in.opts.Data.Find(r.ctx, spec.q, spec.columns)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("find %s: %w", spec.q.Kind, err)
	}
	return outcome.FromResult(outcome.Result{
		Records:   records,
		Columns:   spec.columns,
		Kind:      spec.q.Kind,
		Statement: text,
		Page:      spec.q.Page,
		PageCount: spec.q.PageCount(total),
		Total:     total,
	}), nil
}

func (r *run) purge() (outcome.Outcome, error) {
	r.next()
	spec, err := r.parseFind(findGrammar{kind: true})
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	n, err := r.in.opts.Data.Purge(r.ctx, spec.q)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("purge %s: %w", spec.q.Kind, err)
	}
	return outcome.Message(text, fmt.Sprintf("purged %d %s records", n, spec.q.Kind)), nil
}

var checkColumns = []outcome.Column{
	{Name: "path", Title: "path", Type: model.TypeString, Width: 60},
	{Name: "status", Title: "status", Type: model.TypeString, Width: 10},
	{Name: "expected", Title: "expected", Type: model.TypeString, Width: 64},
	{Name: "actual", Title: "actual", Type: model.TypeString, Width: 64},
}

// check finds every matching file record and verifies its hash.
func (r *run) check() (outcome.Outcome, error) {
	r.next()
	spec, err := r.parseFind(findGrammar{})
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

	spec.q.FilesOnly = true
	paths, err := r.in.opts.Data.Paths(r.ctx, spec.q)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("list files to check: %w", err)
	}
	results, err := scanner.Check(r.ctx, paths)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("check: %w", err)
	}

	out := outcome.Outcome{
		Statement: text,
		Kind:      model.KindFilesystem,
		Columns:   checkColumns,
		Rows:      make([]outcome.Row, 0, len(results)),
		Total:     len(results),
	}
	failed := 0
	for _, res := range results {
		if res.Status != model.CheckOK {
			failed++
		}
		out.Rows = append(out.Rows, outcome.Row{
			"path":     res.Path,
			"status":   string(res.Status),
			"expected": res.Expected,
			"actual":   res.Actual,
		})
	}
	if len(results) > 0 {
		out.PageCount = 1
	}
	out.Message = fmt.Sprintf("checked %d files, %d failed", len(results), failed)
	return out, nil
}

func (r *run) scanner() (ScanRunner, error) {
	if r.in.opts.Scanner == nil {
		return nil, errorAt(r.first(), "%q needs a scan runner, and none is configured", r.first().Text)
	}
	return r.in.opts.Scanner, nil
}
