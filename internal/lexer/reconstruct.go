package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashward/hdsl/internal/catalog"
)

// Reconstruct renders tokens back to canonical statement text. Comments and
// whitespace are dropped. Strings whose value contains a backslash are
// written in raw @'...' form so the text re-lexes to the same value.
func Reconstruct(tokens []Token) string {
	var sb strings.Builder
	var prev Type = -1
	for _, tok := range tokens {
		if !tok.Significant() || tok.Type == TokenEndOfFile {
			continue
		}
		if tok.Type == TokenEndOfLine {
			sb.WriteString(";")
			prev = tok.Type
			continue
		}
		if sb.Len() > 0 && needsSpace(prev, tok.Type) {
			sb.WriteByte(' ')
		}
		sb.WriteString(TokenText(tok))
		prev = tok.Type
	}
	return sb.String()
}

func needsSpace(prev, next Type) bool {
	switch {
	case next == TokenComma, next == TokenColon, prev == TokenColon:
		return false
	}
	return true
}

// TokenText returns the canonical source text of a single token.
func TokenText(tok Token) string {
	if tok.Type == TokenString {
		if s, ok := tok.Value.(string); ok && strings.Contains(s, `\`) {
			return RawString(s)
		}
	}
	return tok.Text
}

// RawString quotes s in the raw @'...' form.
func RawString(s string) string {
	return "@'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteString quotes s in whichever string form preserves it.
func QuoteString(s string) string {
	if strings.Contains(s, `\`) {
		return RawString(s)
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Dump renders one line per token: position, type, raw text and decoded
// value. It is the format of the lexer's golden fixtures and of
// `hdsl tokens`.
func Dump(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "%d:%d %s %q", tok.Row, tok.Col, tok.Type, tok.Text)
		if v := formatValue(tok.Value); v != "" {
			sb.WriteString(" => ")
			sb.WriteString(v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strconv.Quote(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case catalog.Column:
		return "column " + val.Name
	default:
		return fmt.Sprint(val)
	}
}
