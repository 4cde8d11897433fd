package interp

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/hashward/hdsl/internal/lexer"
)

// pathArg is one path operand as written in the script.
type pathArg struct {
	tok lexer.Token
	// raw is the operand text before bookmark expansion: "[name]" for
	// bookmark tokens, the decoded value for strings.
	raw string
}

func isPathToken(tok lexer.Token) bool {
	return tok.Is(lexer.TokenString, lexer.TokenBookmark)
}

func rawPath(tok lexer.Token) string {
	s, _ := tok.Value.(string)
	if tok.Type == lexer.TokenBookmark {
		return "[" + s + "]"
	}
	return s
}

// parsePaths reads a comma-separated list of one or more path operands.
func (r *run) parsePaths() ([]pathArg, error) {
	var args []pathArg
	for {
		tok := r.peek()
		if !isPathToken(tok) {
			return nil, unexpected(tok, "a path or bookmark")
		}
		r.pos++
		args = append(args, pathArg{tok: tok, raw: rawPath(tok)})
		if _, ok := r.accept(lexer.TokenComma); !ok {
			return args, nil
		}
	}
}

// parseOptionalPaths reads a path list if one starts at the cursor.
func (r *run) parseOptionalPaths() ([]pathArg, error) {
	if !isPathToken(r.peek()) {
		return nil, nil
	}
	return r.parsePaths()
}

// resolve expands bookmarks in a path operand and makes it absolute.
func (r *run) resolve(arg pathArg) (string, error) {
	expanded, err := r.in.opts.Data.ExpandBookmarks(r.ctx, arg.raw)
	if err != nil {
		return "", errorAt(arg.tok, "expand %s: %v", arg.raw, err)
	}
	if arg.tok.Type == lexer.TokenBookmark && expanded == arg.raw {
		return "", errorAt(arg.tok, "unknown bookmark %s", arg.raw)
	}
	if expanded == "" {
		return "", errorAt(arg.tok, "empty path")
	}
	return r.absolute(expanded), nil
}

func (r *run) resolveAll(args []pathArg) ([]string, error) {
	paths := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		p, err := r.resolve(a)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// absolute expands a leading ~ and joins relative paths to the working
// directory.
func (r *run) absolute(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := homedir.Expand(p); err == nil {
			p = home
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.in.opts.WorkDir, p)
	}
	return filepath.Clean(p)
}

// hasBookmarkRef reports whether s contains a [name] reference.
func hasBookmarkRef(s string) bool {
	open := strings.IndexByte(s, '[')
	return open >= 0 && strings.IndexByte(s[open:], ']') > 1
}
