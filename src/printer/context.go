// Package printer writes indentation-aware diagnostic text to stderr.
//
// A Context tracks how deeply nested the current output is, so that callers
// can produce output like
//
//	do complexthing
//	    part one
//	    part two
//	done
//
// without passing an indent level around. Printers share a Context by
// pointer; Sections move its indent up and back down.
package printer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// DefaultIndent is the width a Section indents nested output by.
const DefaultIndent = 4

// Context holds the indent level and output settings shared by printers.
type Context struct {
	// Verbose enables output from Verbose printers.
	Verbose bool
	// Logger, when set, receives a copy of everything printed.
	Logger *slog.Logger
	// Out is where printed text goes. Defaults to os.Stderr.
	Out io.Writer
	// Color enables styled labels.
	Color bool

	indent int
}

// NewContext creates a Context writing to stderr. Color is enabled when
// stderr is a terminal.
func NewContext(verbose bool, logger *slog.Logger) *Context {
	return &Context{
		Verbose: verbose,
		Logger:  logger,
		Out:     os.Stderr,
		Color:   term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Indent returns the current indent width.
func (c *Context) Indent() int {
	return c.indent
}

// Increase indents subsequent output by n columns.
func (c *Context) Increase(n int) {
	c.indent += n
	if c.indent < 0 {
		c.indent = 0
	}
}

// Decrease removes n columns of indent, never going below zero.
func (c *Context) Decrease(n int) {
	c.indent = max(0, c.indent-n)
}

// Reset sets the indent back to zero.
func (c *Context) Reset() {
	c.indent = 0
}

// Format renders a like fmt.Sprintln, drops trailing whitespace and pads
// every non-blank line with the current indent.
func (c *Context) Format(a ...any) string {
	text := strings.TrimRight(fmt.Sprintln(a...), " \t\r\n")
	return indentLines(text, strings.Repeat(" ", c.indent))
}

func (c *Context) writer() io.Writer {
	if c.Out == nil {
		return os.Stderr
	}
	return c.Out
}

func (c *Context) write(text string) {
	fmt.Fprintln(c.writer(), text)
}

func indentLines(text, prefix string) string {
	if prefix == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
