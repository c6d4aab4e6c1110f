package printer

import (
	"fmt"
	"io"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	ansi "github.com/wow-look-at-my/ansi-writer"
)

// Printer emits diagnostic text.
type Printer interface {
	// Print formats a like fmt.Sprintln and emits it.
	Print(a ...any)
	// TrySetIndent shifts the indent by delta. It reports false for
	// printers that have no notion of indentation.
	TrySetIndent(delta int) bool
}

// Styler is implemented by printers that can style section labels.
type Styler interface {
	Style(label string) string
}

// Label returns label styled for p, or unchanged if p does not style.
func Label(p Printer, label string) string {
	if s, ok := p.(Styler); ok {
		return s.Style(label)
	}
	return label
}

// Info always prints, and logs at info level when a sink is attached.
type Info struct {
	Ctx *Context
}

// NewInfo returns an Info printer bound to ctx.
func NewInfo(ctx *Context) *Info {
	return &Info{Ctx: ctx}
}

// Print writes a at the current indent and mirrors it to the log sink.
func (p *Info) Print(a ...any) {
	text := p.Ctx.Format(a...)
	p.Ctx.write(text)
	if p.Ctx.Logger != nil {
		p.Ctx.Logger.Info(sinkText(text))
	}
}

// TrySetIndent shifts the shared indent by delta and reports true.
func (p *Info) TrySetIndent(delta int) bool {
	shift(p.Ctx, delta)
	return true
}

// Style colors label when the context has color enabled.
func (p *Info) Style(label string) string {
	return style(p.Ctx, label)
}

// Verbose prints only when the context is verbose, but always logs at
// debug level when a sink is attached.
type Verbose struct {
	Ctx *Context
}

// NewVerbose returns a Verbose printer bound to ctx.
func NewVerbose(ctx *Context) *Verbose {
	return &Verbose{Ctx: ctx}
}

// Print writes a at the current indent if the context is verbose. The log
// sink gets it either way.
func (p *Verbose) Print(a ...any) {
	text := p.Ctx.Format(a...)
	if p.Ctx.Verbose {
		p.Ctx.write(text)
	}
	if p.Ctx.Logger != nil {
		p.Ctx.Logger.Debug(sinkText(text))
	}
}

// TrySetIndent shifts the shared indent by delta and reports true, even
// when output is hidden.
func (p *Verbose) TrySetIndent(delta int) bool {
	shift(p.Ctx, delta)
	return true
}

// Style colors label when the context has color enabled.
func (p *Verbose) Style(label string) string {
	return style(p.Ctx, label)
}

// Silent discards everything.
type Silent struct{}

func (Silent) Print(...any) {}

func (Silent) TrySetIndent(int) bool { return false }

// Plain writes unconditionally to a writer with no indentation and no
// log sink.
type Plain struct {
	W io.Writer
}

func (p Plain) Print(a ...any) {
	fmt.Fprint(p.W, fmt.Sprintln(a...))
}

func (Plain) TrySetIndent(int) bool { return false }

func shift(ctx *Context, delta int) {
	if delta < 0 {
		ctx.Decrease(-delta)
		return
	}
	ctx.Increase(delta)
}

func style(ctx *Context, label string) string {
	if !ctx.Color {
		return label
	}
	return ansi.Style(label, ansi.BrightBlack.FG())
}

// sinkText is what the log sink receives: the printed text without its
// indentation or terminal escapes.
func sinkText(text string) string {
	return strings.TrimSpace(Dedent(xansi.Strip(text)))
}
