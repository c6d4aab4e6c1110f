package runner

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// Result is what a command produced.
type Result struct {
	Command  string
	Output   string // stdout, plus stderr unless split
	Stderr   string // stderr when split
	ExitCode int
	// OK is true when the command exited zero. For background and
	// streamed commands it only reports that the command started.
	OK bool
	// Process is set for background and streamed commands.
	Process *Process
}

// String returns the raw captured output.
func (r *Result) String() string {
	return r.Output
}

// Text returns the output without terminal escapes or surrounding
// whitespace.
func (r *Result) Text() string {
	return Clean(r.Output)
}

// Clean strips terminal escape sequences and surrounding whitespace.
func Clean(s string) string {
	return strings.TrimSpace(xansi.Strip(s))
}

// ExitError is returned when a command exits non-zero.
type ExitError struct {
	Command  string
	Output   string
	Stderr   string
	ExitCode int
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command exited with code %d: %s", e.ExitCode, firstLine(e.Command))
	if out := Clean(e.Output + e.Stderr); out != "" {
		msg += "\n" + out
	}
	return msg
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx] + "..."
	}
	return s
}
