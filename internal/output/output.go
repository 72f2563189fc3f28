// Package output provides formatted check reports and CLI messages.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Writer handles report and message formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New creates a Writer on stdout/stderr, coloring when stdout is a terminal.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(os.Stdout),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetQuiet enables or disables quiet mode. Quiet mode suppresses passing
// check reports and informational messages; failures are always shown.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	if w.color {
		w.Errorln("\033[33mwarning: "+format+"\033[0m", args...)
	} else {
		w.Errorln("warning: "+format, args...)
	}
}

// Green writes one report line in green.
func (w *Writer) Green(location, text string) {
	w.line(green, location, text)
}

// Red writes one report line in red.
func (w *Writer) Red(location, text string) {
	w.line(red, location, text)
}

// CheckOK reports a passing check: "<location>: OK[: msg]".
func (w *Writer) CheckOK(location, msg string) {
	if w.quiet {
		return
	}
	w.Green(location, "OK"+suffix(msg))
}

// CheckFailed reports a failing check: "<location>: FAILED[: msg][: detail]".
// The detail may span several lines.
func (w *Writer) CheckFailed(location, msg, detail string) {
	w.Red(location, "FAILED"+suffix(msg)+suffix(detail))
}

func (w *Writer) line(color, location, text string) {
	var b strings.Builder
	if w.color {
		b.WriteString(color)
	}
	if location != "" {
		b.WriteString(location)
		b.WriteString(": ")
	}
	b.WriteString(text)
	if w.color {
		b.WriteString(reset)
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(w.out, b.String())
}

func suffix(s string) string {
	if s == "" {
		return ""
	}
	return ": " + s
}

// ErrorPrefix prints an error message with calcheck prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%scalcheck:%s %s", red, reset, msg)
	} else {
		w.Errorln("calcheck: %s", msg)
	}
}

// Table prints a simple table.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var headerParts []string
	for i, h := range headers {
		headerParts = append(headerParts, fmt.Sprintf("%-*s", widths[i], h))
	}
	w.Println("%s", strings.TrimRight(strings.Join(headerParts, "  "), " "))

	var sepParts []string
	for _, width := range widths {
		sepParts = append(sepParts, strings.Repeat("-", width))
	}
	w.Println("%s", strings.Join(sepParts, "  "))

	for _, row := range rows {
		var rowParts []string
		for i, cell := range row {
			if i < len(widths) {
				rowParts = append(rowParts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		w.Println("%s", strings.TrimRight(strings.Join(rowParts, "  "), " "))
	}
}

// isTerminal returns true if f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ANSI color codes.
const (
	reset = "\033[0m"
	red   = "\033[31m"
	green = "\033[32m"
)
