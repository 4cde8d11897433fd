package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/model"
)

// Options configure a Tokenize call.
type Options struct {
	// Catalog resolves column names and aliases. Defaults to catalog.Default().
	Catalog catalog.Catalog
	// Allow restricts which token types may appear. Nil allows everything.
	Allow *AllowList
	// KeepWhitespace emits whitespace runs as tokens.
	KeepWhitespace bool
}

// Lexer holds the state of a single Tokenize call.
type Lexer struct {
	src  []rune
	pos  int
	row  int
	col  int
	opts Options

	// kind is the record kind used for column recognition. It follows the
	// most recent record-kind keyword and resets at each statement end.
	kind model.RecordKind

	tokens []Token
	diags  diag.List
}

// errAbort stops the scan after a lexical diagnostic has been recorded.
type errAbort struct{}

func (errAbort) Error() string { return "lexing aborted" }

// Tokenize converts source text into tokens. The returned slice always ends
// with an EndOfLine and an EndOfFile token, even when diagnostics were raised.
func Tokenize(source string, opts Options) ([]Token, []diag.Diagnostic) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	l := &Lexer{
		src:  []rune(source),
		row:  1,
		col:  1,
		opts: opts,
	}
	for l.pos < len(l.src) {
		if err := l.scan(); err != nil {
			break
		}
	}
	l.tokens = append(l.tokens,
		Token{Type: TokenEndOfLine, Row: l.row, Col: l.col},
		Token{Type: TokenEndOfFile, Row: l.row, Col: l.col},
	)
	return l.tokens, l.diags.Items()
}

func (l *Lexer) peek(n int) rune {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *Lexer) atEnd(n int) bool {
	return l.pos+n >= len(l.src)
}

func (l *Lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	switch ch {
	case '\n':
		l.row++
		l.col = 1
	case '\r':
		l.col = 1
	default:
		l.col++
	}
	return ch
}

func (l *Lexer) fail(row, col int, format string, args ...any) error {
	l.diags.Addf(row, col, format, args...)
	return errAbort{}
}

func (l *Lexer) emit(tok Token) {
	if tok.Type.IsRecordKind() {
		if kind, ok := model.ParseRecordKind(tok.Type.String()); ok {
			l.kind = kind
		}
	}
	if tok.Type == TokenEndOfLine {
		l.kind = model.KindFilesystem
	}
	if !l.opts.Allow.Allows(tok.Type) {
		l.diags.Addf(tok.Row, tok.Col, "%q is not permitted here", tok.Text)
		return
	}
	l.tokens = append(l.tokens, tok)
}

// scan recognises one token at the current position.
func (l *Lexer) scan() error {
	row, col, start := l.row, l.col, l.pos
	ch := l.peek(0)

	switch {
	case ch == '-' && l.peek(1) == '-':
		for !l.atEnd(0) && l.peek(0) != '\n' {
			l.advance()
		}
		l.emit(Token{Type: TokenComment, Row: row, Col: col, Text: l.text(start)})
		return nil
	case ch == '/' && l.peek(1) == '*':
		return l.scanBlockComment(row, col, start)
	case unicode.IsSpace(ch):
		for !l.atEnd(0) && unicode.IsSpace(l.peek(0)) {
			l.advance()
		}
		if l.opts.KeepWhitespace {
			l.emit(Token{Type: TokenWhitespace, Row: row, Col: col, Text: l.text(start)})
		}
		return nil
	case ch == '#':
		return l.scanDateTime(row, col, start)
	case ch == '[':
		return l.scanBookmark(row, col, start)
	case ch == '\'':
		return l.scanString(row, col, start)
	case ch == '@' && l.peek(1) == '\'':
		return l.scanRawString(row, col, start)
	case ch == ',':
		l.advance()
		l.emit(Token{Type: TokenComma, Row: row, Col: col, Text: ","})
		return nil
	case ch == ':':
		l.advance()
		l.emit(Token{Type: TokenColon, Row: row, Col: col, Text: ":"})
		return nil
	case isDigit(ch):
		return l.scanNumber(row, col, start)
	case strings.ContainsRune("=><+-.~!", ch):
		return l.scanOperator(row, col, start)
	case ch == ';':
		l.advance()
		l.emit(Token{Type: TokenEndOfLine, Row: row, Col: col, Text: ";"})
		return nil
	case isIdentStart(ch):
		return l.scanIdent(row, col, start)
	}
	return l.fail(row, col, "unexpected character %q", ch)
}

func (l *Lexer) text(start int) string {
	return string(l.src[start:l.pos])
}

func (l *Lexer) scanBlockComment(row, col, start int) error {
	l.advance()
	l.advance()
	for {
		if l.atEnd(0) {
			return l.fail(row, col, "unterminated block comment")
		}
		switch {
		case l.peek(0) == '\\' && !l.atEnd(1):
			l.advance()
			l.advance()
		case l.peek(0) == '*' && l.peek(1) == '/':
			l.advance()
			l.advance()
			l.emit(Token{Type: TokenComment, Row: row, Col: col, Text: l.text(start)})
			return nil
		default:
			l.advance()
		}
	}
}

var dateTimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// ParseDateTime parses the body of a #...# literal in local time. RFC 3339
// values keep their own zone.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed datetime %q", s)
}

func (l *Lexer) scanDateTime(row, col, start int) error {
	l.advance()
	bodyStart := l.pos
	for {
		if l.atEnd(0) || l.peek(0) == '\n' {
			return l.fail(row, col, "unterminated datetime literal")
		}
		if l.peek(0) == '#' {
			break
		}
		l.advance()
	}
	body := string(l.src[bodyStart:l.pos])
	l.advance()
	t, err := ParseDateTime(body)
	if err != nil {
		return l.fail(row, col, "%v", err)
	}
	l.emit(Token{Type: TokenDateTime, Row: row, Col: col, Text: l.text(start), Value: t})
	return nil
}

// scanPaired reads up to an unescaped end rune. A backslash escapes the
// end rune and itself; any other backslash is kept as written.
func (l *Lexer) scanPaired(end rune) (string, bool) {
	var sb strings.Builder
	for {
		if l.atEnd(0) {
			return "", false
		}
		ch := l.peek(0)
		if ch == '\\' && (l.peek(1) == end || l.peek(1) == '\\') {
			l.advance()
			sb.WriteRune(l.advance())
			continue
		}
		if ch == end {
			l.advance()
			return sb.String(), true
		}
		sb.WriteRune(l.advance())
	}
}

func (l *Lexer) scanBookmark(row, col, start int) error {
	l.advance()
	name, ok := l.scanPaired(']')
	if !ok {
		return l.fail(row, col, "unterminated bookmark reference")
	}
	if strings.TrimSpace(name) == "" {
		return l.fail(row, col, "empty bookmark reference")
	}
	l.emit(Token{Type: TokenBookmark, Row: row, Col: col, Text: l.text(start), Value: name})
	return nil
}

func (l *Lexer) scanString(row, col, start int) error {
	l.advance()
	value, ok := l.scanPaired('\'')
	if !ok {
		return l.fail(row, col, "unterminated string literal")
	}
	l.emit(Token{Type: TokenString, Row: row, Col: col, Text: l.text(start), Value: value})
	return nil
}

// scanRawString reads @'...'. Nothing is escaped; a doubled quote stands
// for one quote.
func (l *Lexer) scanRawString(row, col, start int) error {
	l.advance()
	l.advance()
	var sb strings.Builder
	for {
		if l.atEnd(0) {
			return l.fail(row, col, "unterminated string literal")
		}
		ch := l.advance()
		if ch != '\'' {
			sb.WriteRune(ch)
			continue
		}
		if l.peek(0) == '\'' {
			l.advance()
			sb.WriteRune('\'')
			continue
		}
		break
	}
	l.emit(Token{Type: TokenString, Row: row, Col: col, Text: l.text(start), Value: sb.String()})
	return nil
}

func (l *Lexer) scanNumber(row, col, start int) error {
	for isDigit(l.peek(0)) {
		l.advance()
	}
	isReal := false
	if l.peek(0) == '.' {
		isReal = true
		l.advance()
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	if next := l.peek(0); next == '.' || isIdentStart(next) {
		for !l.atEnd(0) && (l.peek(0) == '.' || isIdentChar(l.peek(0))) {
			l.advance()
		}
		return l.fail(row, col, "malformed number %q", l.text(start))
	}

	text := l.text(start)
	if !isReal {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return l.fail(row, col, "malformed number %q", text)
		}
		l.emit(Token{Type: TokenWholeNumber, Row: row, Col: col, Text: text, Value: n})
		return nil
	}
	digits := text
	if strings.HasSuffix(digits, ".") {
		digits += "0"
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return l.fail(row, col, "malformed number %q", text)
	}
	l.emit(Token{Type: TokenRealNumber, Row: row, Col: col, Text: text, Value: f})
	return nil
}

func (l *Lexer) scanOperator(row, col, start int) error {
	ch := l.advance()
	var ty Type
	switch ch {
	case '=':
		ty = TokenEquals
	case '>':
		ty = TokenGreater
		if l.peek(0) == '=' {
			l.advance()
			ty = TokenGreaterOrEqual
		}
	case '<':
		ty = TokenLess
		if l.peek(0) == '=' {
			l.advance()
			ty = TokenLessOrEqual
		}
	case '!':
		if l.peek(0) != '=' {
			return l.fail(row, col, "unexpected character %q", ch)
		}
		l.advance()
		ty = TokenNotEquals
	case '+':
		ty = TokenHas
	case '-':
		ty = TokenHasNot
	case '.':
		ty = TokenPeriod
	case '~':
		ty = TokenLike
	}
	l.emit(Token{Type: ty, Row: row, Col: col, Text: l.text(start)})
	return nil
}

func (l *Lexer) scanIdent(row, col, start int) error {
	for !l.atEnd(0) && isIdentChar(l.peek(0)) {
		l.advance()
	}
	ident := l.text(start)

	if c, ok := l.opts.Catalog.Lookup(l.kind, ident); ok {
		l.emit(Token{Type: TokenColumnRef, Row: row, Col: col, Text: ident, Value: c})
		return nil
	}
	if ty, ok := LookupKeyword(ident); ok {
		l.emit(Token{Type: ty, Row: row, Col: col, Text: ident})
		return nil
	}
	if flag, ok := model.LookupAttribute(ident); ok {
		l.emit(Token{Type: TokenAttribute, Row: row, Col: col, Text: ident, Value: flag})
		return nil
	}
	if hint := catalog.Suggest(l.opts.Catalog, l.kind, ident); hint != "" {
		return l.fail(row, col, "unknown identifier %q (did you mean %q?)", ident, hint)
	}
	return l.fail(row, col, "unknown identifier %q", ident)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
