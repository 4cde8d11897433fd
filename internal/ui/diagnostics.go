package ui

import (
	"strconv"
	"strings"

	"github.com/hashward/hdsl/internal/diag"
)

// RenderDiagnostics prints each diagnostic followed by the offending source
// line and a caret under the reported column.
func RenderDiagnostics(source string, diags []diag.Diagnostic) string {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	gutter := len(strconv.Itoa(len(lines)))

	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(Error(d.String()))
		sb.WriteString("\n")
		if d.Row < 1 || d.Row > len(lines) {
			continue
		}
		line := lines[d.Row-1]
		sb.WriteString("  ")
		sb.WriteString(LineNumPadded(d.Row, gutter))
		sb.WriteString(Muted.Render(" │ "))
		sb.WriteString(line)
		sb.WriteString("\n")
		if d.Col < 1 {
			continue
		}
		sb.WriteString("  ")
		sb.WriteString(strings.Repeat(" ", gutter))
		sb.WriteString(Muted.Render(" │ "))
		sb.WriteString(caretPrefix(line, d.Col))
		sb.WriteString(AccentBold.Render("^"))
		sb.WriteString("\n")
	}
	sb.WriteString(Hint(Count(len(diags), "error", "errors")))
	sb.WriteString("\n")
	return sb.String()
}

// caretPrefix blanks the first col-1 runes of line, keeping tabs so the
// caret lines up.
func caretPrefix(line string, col int) string {
	var sb strings.Builder
	i := 1
	for _, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			sb.WriteRune('\t')
		} else {
			sb.WriteRune(' ')
		}
		i++
	}
	for ; i < col; i++ {
		sb.WriteRune(' ')
	}
	return sb.String()
}
