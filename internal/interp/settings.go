package interp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
)

// MaxColumnWidth bounds the display width a column override may set.
const MaxColumnWidth = 512

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// set handles output redirection and column overrides:
//
//	set stdout|stderr path;
//	set [kind] column c [alias 'a'] [width N];
func (r *run) set() (outcome.Outcome, error) {
	r.next()
	if stream, ok := r.accept(lexer.TokenStdout, lexer.TokenStderr); ok {
		return r.setStream(stream)
	}

	kind := r.parseKind()
	if _, err := r.expect("stdout, stderr or column", lexer.TokenColumn); err != nil {
		return outcome.Outcome{}, err
	}
	cols, err := r.parseColumns(kind)
	if err != nil {
		return outcome.Outcome{}, err
	}
	if len(cols) > 1 {
		return outcome.Outcome{}, errorAt(r.toks[r.pos-1], "set column takes a single column")
	}
	col := cols[0]

	o := model.ColumnOverride{Kind: kind, Name: col.Name}
	for {
		if _, ok := r.accept(lexer.TokenAlias); ok {
			tok, err := r.expect("an alias string", lexer.TokenString)
			if err != nil {
				return outcome.Outcome{}, err
			}
			alias := tok.Value.(string)
			if err := r.validateAlias(kind, col, alias); err != nil {
				return outcome.Outcome{}, errorAt(tok, "%v", err)
			}
			o.Alias = alias
			continue
		}
		if _, ok := r.accept(lexer.TokenWidth); ok {
			tok, err := r.expect("a width", lexer.TokenWholeNumber)
			if err != nil {
				return outcome.Outcome{}, err
			}
			w := tok.Value.(int64)
			if w <= 0 || w > MaxColumnWidth {
				return outcome.Outcome{}, errorAt(tok, "width must be between 1 and %d", MaxColumnWidth)
			}
			o.Width = int(w)
			continue
		}
		break
	}
	if o.Alias == "" && o.Width == 0 {
		return outcome.Outcome{}, unexpected(r.peek(), "alias or width")
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}

	if err := r.in.opts.Data.SaveColumnOverride(r.ctx, o); err != nil {
		return outcome.Outcome{}, fmt.Errorf("save column override: %w", err)
	}
	var parts []string
	if o.Alias != "" {
		parts = append(parts, "alias "+o.Alias)
	}
	if o.Width > 0 {
		parts = append(parts, fmt.Sprintf("width %d", o.Width))
	}
	return outcome.Message(text, fmt.Sprintf("%s column %s: %s", kind, col.Name, strings.Join(parts, ", "))), nil
}

func (r *run) setStream(stream lexer.Token) (outcome.Outcome, error) {
	args, err := r.parsePaths()
	if err != nil {
		return outcome.Outcome{}, err
	}
	if len(args) > 1 {
		return outcome.Outcome{}, errorAt(args[1].tok, "%s is redirected to a single file", stream.Text)
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}
	path, err := r.resolve(args[0])
	if err != nil {
		return outcome.Outcome{}, err
	}
	key := stream.Type.String()
	if err := r.in.opts.Data.SetSetting(r.ctx, key, path); err != nil {
		return outcome.Outcome{}, fmt.Errorf("redirect %s: %w", key, err)
	}
	return outcome.Message(text, fmt.Sprintf("%s redirected to %s", key, path)), nil
}

// validateAlias rejects aliases the lexer could not read back as the column.
func (r *run) validateAlias(kind model.RecordKind, col catalog.Column, alias string) error {
	switch {
	case !aliasPattern.MatchString(alias):
		return fmt.Errorf("alias %q must be a plain identifier", alias)
	case lexer.IsReserved(alias):
		return fmt.Errorf("alias %q is a reserved word", alias)
	}
	if _, ok := model.LookupAttribute(alias); ok {
		return fmt.Errorf("alias %q is a file attribute name", alias)
	}
	if other, ok := r.cat.Lookup(kind, alias); ok && other.Name != col.Name {
		return fmt.Errorf("alias %q is already used by column %q", alias, other.Name)
	}
	return nil
}

// reset handles `reset stdout|stderr;` and `reset [kind] column c,...;`.
func (r *run) reset() (outcome.Outcome, error) {
	r.next()
	if stream, ok := r.accept(lexer.TokenStdout, lexer.TokenStderr); ok {
		text, err := r.end()
		if err != nil {
			return outcome.Outcome{}, err
		}
		key := stream.Type.String()
		if err := r.in.opts.Data.ClearSetting(r.ctx, key); err != nil {
			return outcome.Outcome{}, fmt.Errorf("reset %s: %w", key, err)
		}
		return outcome.Message(text, key+" restored to the console"), nil
	}

	kind := r.parseKind()
	if _, err := r.expect("stdout, stderr or column", lexer.TokenColumn); err != nil {
		return outcome.Outcome{}, err
	}
	cols, err := r.parseColumns(kind)
	if err != nil {
		return outcome.Outcome{}, err
	}
	text, err := r.end()
	if err != nil {
		return outcome.Outcome{}, err
	}
	for _, c := range cols {
		if err := r.in.opts.Data.ClearColumnOverride(r.ctx, kind, c.Name); err != nil {
			return outcome.Outcome{}, fmt.Errorf("reset column %s: %w", c.Name, err)
		}
	}
	return outcome.Message(text, fmt.Sprintf("%d %s columns reset", len(cols), kind)), nil
}
