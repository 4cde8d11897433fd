package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/hashward/hdsl/internal/model"
	"github.com/hashward/hdsl/internal/outcome"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// DateTimeLayout is how DateTime cells are printed.
const DateTimeLayout = "2006-01-02 15:04:05"

const (
	columnPadding = 2
	leftMargin    = 2
	minFlexWidth  = 8
)

// ColumnDef defines a column in a ResultsTable.
type ColumnDef struct {
	Name     string         // Canonical column name
	Title    string         // Header text
	MaxWidth int            // Maximum width (0 = no limit)
	Align    Alignment      // Text alignment
	Style    lipgloss.Style // Style to apply to cells in this column
}

// ResultsTable renders projected records as an aligned table.
type ResultsTable struct {
	display *DisplayContext
	columns []ColumnDef
	rows    [][]string
}

// NewResultsTable creates a new ResultsTable with the given display context and column layout.
func NewResultsTable(display *DisplayContext, columns []ColumnDef) *ResultsTable {
	return &ResultsTable{
		display: display,
		columns: columns,
	}
}

// ColumnsFor builds the table layout of an outcome. Numbers are
// right-aligned and paths take the accent color.
func ColumnsFor(cols []outcome.Column) []ColumnDef {
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		def := ColumnDef{Name: c.Name, Title: c.Title, MaxWidth: c.Width}
		switch c.Type {
		case model.TypeWholeNumber, model.TypeRealNumber:
			def.Align = AlignRight
		}
		if c.Name == "path" {
			def.Style = Accent
		}
		defs[i] = def
	}
	return defs
}

// AddRow adds a row of rendered cells to the table.
func (t *ResultsTable) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// calculateWidths sizes each column to its widest cell, capped by MaxWidth,
// then narrows the widest columns until the table fits the terminal.
func (t *ResultsTable) calculateWidths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = lipgloss.Width(col.Title)
		for _, row := range t.rows {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
		if col.MaxWidth > 0 && widths[i] > col.MaxWidth {
			widths[i] = col.MaxWidth
		}
	}

	available := t.display.AvailableWidth(leftMargin) - (len(t.columns)-1)*columnPadding
	for {
		total, widest := 0, 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= available || widths[widest] <= minFlexWidth {
			return widths
		}
		widths[widest]--
	}
}

// Render generates the table output as a string.
func (t *ResultsTable) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.calculateWidths()

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = TruncateWithEllipsis(col.Title, widths[i])
	}
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = TruncateWithEllipsis(cell, widths[j])
		}
		rows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderRow(false).
		BorderColumn(false).
		BorderStyle(Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}
			colDef := t.columns[col]

			style := colDef.Style
			if row == table.HeaderRow {
				style = AccentBold
			}

			width := widths[col]
			if col < len(t.columns)-1 {
				style = style.PaddingRight(columnPadding)
				width += columnPadding
			}
			style = style.Width(width)

			switch colDef.Align {
			case AlignRight:
				style = style.Align(lipgloss.Right)
			case AlignCenter:
				style = style.Align(lipgloss.Center)
			default:
				style = style.Align(lipgloss.Left)
			}
			return style
		}).
		Headers(headers...).
		Rows(rows...)

	return tbl.Render()
}

// FormatValue renders one cell. Sizes are humanized, other whole numbers
// get thousands separators.
func FormatValue(col outcome.Column, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.IsZero() || val.Unix() == 0 {
			return ""
		}
		return val.Local().Format(DateTimeLayout)
	case int64:
		switch {
		case col.Type == model.TypeFlags:
			return model.FormatAttributes(val)
		case col.Name == "size" && val >= 0:
			return humanize.IBytes(uint64(val))
		}
		return humanize.Comma(val)
	case int:
		return humanize.Comma(int64(val))
	case float64:
		return humanize.Ftoa(val)
	case string:
		return val
	}
	return fmt.Sprint(v)
}

// TruncateWithEllipsis truncates a string to maxLen runes, ending in an
// ellipsis if anything was cut.
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 || lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 1 || len(runes) <= maxLen {
		return string(runes[:min(maxLen, len(runes))])
	}
	return string(runes[:maxLen-1]) + "…"
}

// RenderOutcome renders one statement result: a table with a paging footer
// for record listings, or the summary message for everything else.
func RenderOutcome(display *DisplayContext, o outcome.Outcome) string {
	var sb strings.Builder
	sb.WriteString(Hint(o.Statement))
	sb.WriteString("\n")

	if len(o.Columns) == 0 {
		sb.WriteString(Success(o.Message))
		sb.WriteString("\n")
		return sb.String()
	}

	t := NewResultsTable(display, ColumnsFor(o.Columns))
	for _, row := range o.Rows {
		cells := make([]string, len(o.Columns))
		for i, c := range o.Columns {
			cells[i] = FormatValue(c, row[c.Name])
		}
		t.AddRow(cells...)
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	switch {
	case o.Message != "":
		sb.WriteString(Success(o.Message))
	case o.Total == 0:
		sb.WriteString(Hint("no matching records"))
	default:
		sb.WriteString(Hint(fmt.Sprintf("page %d of %d %s", o.Page+1, max(o.PageCount, 1),
			Count(o.Total, "record", "records"))))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderSet renders every outcome of a successful run, or the diagnostics
// of a failed one against the script source.
func RenderSet(display *DisplayContext, source string, set outcome.Set) string {
	if !set.OK() {
		return RenderDiagnostics(source, set.Diagnostics)
	}
	parts := make([]string, len(set.Outcomes))
	for i, o := range set.Outcomes {
		parts[i] = RenderOutcome(display, o)
	}
	return strings.Join(parts, "\n")
}
