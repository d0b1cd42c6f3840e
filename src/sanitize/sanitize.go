// Package sanitize provides utilities for turning raw CI log lines into readable diagnostics.
// It removes ANSI escape codes and carriage returns and bounds line width for log output.
//
// It is only used for messages about lines. Log files and summary-line matching
// always see the raw bytes.
package sanitize

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// DefaultWidth is the display width ForLog truncates to.
const DefaultWidth = 160

// StripANSI removes ANSI escape sequences (SGR colors, cursor controls, OSC markers).
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips ANSI sequences, drops carriage returns and trims trailing newlines.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimRight(s, "\n")
}

// Truncate shortens s to at most width display cells, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// ForLog prepares a raw log line for inclusion in a log message.
func ForLog(line string) string {
	return Truncate(Clean(line), DefaultWidth)
}
