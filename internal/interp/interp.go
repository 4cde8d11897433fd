// Package interp runs HDSL scripts.
//
// A run tokenizes the whole script, then executes statements in order until
// the input is exhausted or a statement fails. Any failure turns the whole
// run into a diagnostic list; side effects of statements that already
// completed are kept.
package interp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/outcome"
	"github.com/hashward/hdsl/internal/where"
)

// Options configure an Interpreter.
type Options struct {
	Data    DataHandler
	Scanner ScanRunner
	// Fs is used to validate bookmark targets. Defaults to the OS filesystem.
	Fs afero.Fs
	// WorkDir resolves relative paths and is the default scan/find target.
	// Defaults to the process working directory.
	WorkDir string
	// Allow restricts which tokens scripts may use. Nil allows everything.
	Allow  *lexer.AllowList
	Logger *slog.Logger
	// Now returns the run timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Interpreter executes scripts against a data handler and scan runner. An
// Interpreter holds no per-run state and may be shared.
type Interpreter struct {
	opts Options
}

// New returns an Interpreter with defaults filled in.
func New(opts Options) (*Interpreter, error) {
	if opts.Data == nil {
		return nil, errors.New("interp: data handler is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("interp: resolve working directory: %w", err)
		}
		opts.WorkDir = wd
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Interpreter{opts: opts}, nil
}

// Tokenize lexes source with the data handler's current catalog and the
// interpreter's allow-list.
func (in *Interpreter) Tokenize(ctx context.Context, source string) ([]lexer.Token, []diag.Diagnostic, error) {
	cat, err := in.opts.Data.Catalog(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	tokens, diags := lexer.Tokenize(source, lexer.Options{Catalog: cat, Allow: in.opts.Allow})
	return tokens, diags, nil
}

// Run executes source and returns its outcomes, or its diagnostics if any
// stage failed.
func (in *Interpreter) Run(ctx context.Context, source string) (set outcome.Set) {
	log := in.opts.Logger.With("run", uuid.NewString())
	defer func() {
		if p := recover(); p != nil {
			log.Error("interpreter panic", "panic", p)
			set = outcome.Failed([]diag.Diagnostic{diag.New(0, 0, "internal error: %v", p)})
		}
	}()

	cat, err := in.opts.Data.Catalog(ctx)
	if err != nil {
		return outcome.Failed([]diag.Diagnostic{diag.New(0, 0, "load catalog: %v", err)})
	}
	tokens, diags := lexer.Tokenize(source, lexer.Options{Catalog: cat, Allow: in.opts.Allow})
	if len(diags) > 0 {
		log.Debug("lexing failed", "diagnostics", len(diags))
		return outcome.Failed(diags)
	}

	r := &run{
		in:   in,
		ctx:  ctx,
		log:  log,
		cat:  cat,
		eval: where.EvalContext{Now: in.opts.Now()},
	}
	for _, tok := range tokens {
		if tok.Significant() {
			r.toks = append(r.toks, tok)
		}
	}
	return r.execute()
}

// run is the state of one Run call.
type run struct {
	in   *Interpreter
	ctx  context.Context
	log  *slog.Logger
	cat  catalog.Catalog
	eval where.EvalContext

	toks  []lexer.Token
	pos   int
	start int

	diags diag.List
}

type handler func(*run) (outcome.Outcome, error)

var handlers = map[lexer.Type]handler{
	lexer.TokenBookmark: (*run).bookmark,
	lexer.TokenFind:     (*run).find,
	lexer.TokenScan:     (*run).scan,
	lexer.TokenCheck:    (*run).check,
	lexer.TokenPurge:    (*run).purge,
	lexer.TokenExclude:  (*run).exclude,
	lexer.TokenInclude:  (*run).include,
	lexer.TokenWard:     (*run).ward,
	lexer.TokenWatch:    (*run).watch,
	lexer.TokenSet:      (*run).set,
	lexer.TokenReset:    (*run).reset,
}

func (r *run) execute() outcome.Set {
	var outcomes []outcome.Outcome
	for {
		tok := r.peek()
		switch tok.Type {
		case lexer.TokenEndOfFile:
			return outcome.Succeeded(outcomes)
		case lexer.TokenEndOfLine:
			r.pos++
			continue
		}

		h, ok := handlers[tok.Type]
		if !ok {
			r.diags.Addf(tok.Row, tok.Col, "unexpected %q at start of statement", tok.Text)
			return outcome.Failed(r.diags.Items())
		}
		r.start = r.pos
		out, err := h(r)
		if err != nil {
			r.diags.Add(r.diagnose(err))
			r.log.Debug("statement failed", "statement", tok.Type.String(), "err", err)
			return outcome.Failed(r.diags.Items())
		}
		r.log.Debug("statement done", "statement", out.Statement)
		outcomes = append(outcomes, out)
	}
}

// Cursor helpers. The token slice always ends with EndOfLine, EndOfFile, so
// peek never runs off the end.

func (r *run) peek() lexer.Token {
	if r.pos >= len(r.toks) {
		return r.toks[len(r.toks)-1]
	}
	return r.toks[r.pos]
}

func (r *run) next() lexer.Token {
	tok := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	return tok
}

func (r *run) accept(types ...lexer.Type) (lexer.Token, bool) {
	tok := r.peek()
	if tok.Is(types...) {
		r.pos++
		return tok, true
	}
	return tok, false
}

func (r *run) expect(what string, types ...lexer.Type) (lexer.Token, error) {
	tok, ok := r.accept(types...)
	if !ok {
		return tok, unexpected(tok, what)
	}
	return tok, nil
}

// end consumes the statement terminator and returns the statement text.
func (r *run) end() (string, error) {
	tok := r.peek()
	if !tok.Is(lexer.TokenEndOfLine, lexer.TokenEndOfFile) {
		return "", unexpected(tok, "end of statement")
	}
	if tok.Type == lexer.TokenEndOfLine {
		r.pos++
	}
	return r.text(), nil
}

// text reconstructs the current statement from its tokens.
func (r *run) text() string {
	return lexer.Reconstruct(r.toks[r.start:r.pos])
}

func (r *run) first() lexer.Token {
	return r.toks[r.start]
}

// syntaxError is a positioned grammar or validation error.
type syntaxError struct {
	Row int
	Col int
	Msg string
}

func (e *syntaxError) Error() string { return e.Msg }

func errorAt(tok lexer.Token, format string, args ...any) error {
	return &syntaxError{Row: tok.Row, Col: tok.Col, Msg: fmt.Sprintf(format, args...)}
}

func unexpected(tok lexer.Token, what string) error {
	switch tok.Type {
	case lexer.TokenEndOfFile:
		return errorAt(tok, "expected %s, found end of input", what)
	case lexer.TokenEndOfLine:
		return errorAt(tok, "expected %s, found end of statement", what)
	}
	return errorAt(tok, "expected %s, found %q", what, tok.Text)
}

// diagnose converts a handler error into a diagnostic. Errors without a
// position are reported at the start of the failing statement.
func (r *run) diagnose(err error) diag.Diagnostic {
	var se *syntaxError
	if errors.As(err, &se) {
		return diag.Diagnostic{Row: se.Row, Col: se.Col, Message: se.Msg}
	}
	var we *where.Error
	if errors.As(err, &we) {
		return diag.New(we.Row, we.Col, "%s", we.Error())
	}
	tok := r.first()
	return diag.New(tok.Row, tok.Col, "%v", err)
}
