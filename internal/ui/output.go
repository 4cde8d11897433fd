package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Status prefixes a console line with a symbol.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusInfo
)

var statusSymbols = [...]string{
	StatusSuccess: "✓",
	StatusError:   "✗",
	StatusInfo:    "ℹ",
}

// Line returns msg behind the status symbol.
func (s Status) Line(msg string) string {
	return statusSymbols[s] + " " + msg
}

func Success(msg string) string { return StatusSuccess.Line(msg) }

func Successf(format string, args ...any) string {
	return StatusSuccess.Line(fmt.Sprintf(format, args...))
}

func Error(msg string) string { return StatusError.Line(msg) }

func Info(msg string) string { return StatusInfo.Line(msg) }

func Infof(format string, args ...any) string {
	return StatusInfo.Line(fmt.Sprintf(format, args...))
}

// Header returns a bold section header.
func Header(msg string) string {
	return Bold.Render(msg)
}

// FilePath returns an accent-styled path.
func FilePath(path string) string {
	return Accent.Render(path)
}

// LineNumPadded returns a muted line number right-aligned to width.
func LineNumPadded(n int, width int) string {
	return Muted.Render(fmt.Sprintf("%*d", width, n))
}

// Hint returns muted text.
func Hint(msg string) string {
	return Muted.Render(msg)
}

// Count returns a badge such as "(1,204 records)".
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("(%s %s)", humanize.Comma(int64(n)), noun)
}
