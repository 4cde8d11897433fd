// Package outcome holds the results an HDSL run hands back to its caller.
package outcome

import (
	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/model"
)

// Column describes one projected column.
type Column struct {
	Name  string          `json:"name" yaml:"name"`
	Title string          `json:"title" yaml:"title"`
	Type  model.ValueType `json:"type" yaml:"type"`
	Width int             `json:"width" yaml:"width"`
}

// Row is one projected record keyed by canonical column name.
type Row map[string]any

// Outcome is the result of one successful statement.
type Outcome struct {
	// Statement is the reconstructed source text of the statement.
	Statement string           `json:"statement" yaml:"statement"`
	Kind      model.RecordKind `json:"kind" yaml:"kind"`
	Columns   []Column         `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows      []Row            `json:"rows,omitempty" yaml:"rows,omitempty"`
	Page      int              `json:"page" yaml:"page"`
	PageCount int              `json:"page_count" yaml:"page_count"`
	Total     int              `json:"total" yaml:"total"`
	// Message summarises statements that change state rather than list
	// records.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Result is a raw query result as returned by the data handler.
type Result struct {
	Records   []model.Record
	Columns   []catalog.Column
	Kind      model.RecordKind
	Statement string
	Page      int
	PageCount int
	Total     int
}

// FromResult projects a raw result into an Outcome. Only the listed
// columns are kept on each row.
func FromResult(r Result) Outcome {
	out := Outcome{
		Statement: r.Statement,
		Kind:      r.Kind,
		Columns:   make([]Column, len(r.Columns)),
		Rows:      make([]Row, 0, len(r.Records)),
		Page:      r.Page,
		PageCount: r.PageCount,
		Total:     r.Total,
	}
	for i, c := range r.Columns {
		out.Columns[i] = Column{Name: c.Name, Title: c.Display(), Type: c.Type, Width: c.Width}
	}
	for _, rec := range r.Records {
		row := make(Row, len(r.Columns))
		for _, c := range r.Columns {
			if v, ok := rec[c.Name]; ok {
				row[c.Name] = v
			} else {
				row[c.Name] = catalog.ZeroValue(c.Type)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Message returns an Outcome that carries only a summary line.
func Message(statement, msg string) Outcome {
	return Outcome{Statement: statement, Message: msg}
}

// Set is the result of a whole script: outcomes on success, diagnostics on
// failure, never both.
type Set struct {
	Outcomes    []Outcome         `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Succeeded builds a successful set.
func Succeeded(outcomes []Outcome) Set {
	return Set{Outcomes: outcomes}
}

// Failed builds a failed set.
func Failed(diags []diag.Diagnostic) Set {
	return Set{Diagnostics: diags}
}

// OK reports whether the run produced no diagnostics.
func (s Set) OK() bool {
	return len(s.Diagnostics) == 0
}
