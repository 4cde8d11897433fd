// Package diag holds the diagnostics produced by every stage of the HDSL engine.
package diag

import (
	"fmt"
	"strings"
)

// Diagnostic is a positioned error message. Row and Col are 1-based; zero
// means the position is unknown.
type Diagnostic struct {
	Row     int    `json:"row" yaml:"row"`
	Col     int    `json:"col" yaml:"col"`
	Message string `json:"message" yaml:"message"`
}

// New builds a diagnostic from a format string.
func New(row, col int, format string, args ...any) Diagnostic {
	return Diagnostic{Row: row, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) String() string {
	if d.Row == 0 && d.Col == 0 {
		return d.Message
	}
	return fmt.Sprintf("%d:%d: %s", d.Row, d.Col, d.Message)
}

// List accumulates diagnostics in the order they were raised.
type List struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Addf appends a formatted diagnostic.
func (l *List) Addf(row, col int, format string, args ...any) {
	l.Add(New(row, col, format, args...))
}

// Append appends several diagnostics.
func (l *List) Append(ds ...Diagnostic) {
	l.items = append(l.items, ds...)
}

// Len returns the number of diagnostics.
func (l *List) Len() int { return len(l.items) }

// HasErrors reports whether any diagnostic was recorded.
func (l *List) HasErrors() bool { return len(l.items) > 0 }

// Items returns the recorded diagnostics.
func (l *List) Items() []Diagnostic { return l.items }

// Error joins the diagnostics into a single message.
func (l *List) Error() string {
	parts := make([]string, len(l.items))
	for i, d := range l.items {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
