// Package scoped bundles a printer, sections bound to it and a runner
// bound to it, so call sites pick a visibility once instead of branching
// on verbosity.
package scoped

import (
	"io"
	"log/slog"

	"github.com/wow-look-at-my/airfilter/src/printer"
	"github.com/wow-look-at-my/airfilter/src/runner"
)

// Scope prints, groups and runs commands at one visibility level.
type Scope struct {
	printer printer.Printer
	runner  *runner.Runner
}

// New binds a printer and workdir. shims may be nil.
func New(p printer.Printer, workdir string, shims *runner.Shims) Scope {
	r := runner.New(p, workdir)
	r.Shims = shims
	return Scope{printer: p, runner: r}
}

// FromRunner builds a scope that prints through p and runs with a copy of
// r rebound to p.
func FromRunner(p printer.Printer, r *runner.Runner) Scope {
	return Scope{printer: p, runner: r.Bind(p, r.Workdir)}
}

// Printer returns the bound printer.
func (s Scope) Printer() printer.Printer {
	return s.printer
}

// Runner returns the bound runner.
func (s Scope) Runner() *runner.Runner {
	return s.runner
}

// Print emits a through the bound printer.
func (s Scope) Print(a ...any) {
	s.printer.Print(a...)
}

// Section opens a section on the bound printer; defer the result.
func (s Scope) Section(header string) (end func()) {
	return printer.Section(s.printer, header)
}

// WithSection runs fn inside a section on the bound printer.
func (s Scope) WithSection(header string, fn func() error) error {
	return printer.WithSection(s.printer, header, fn)
}

// Run runs cfg through the bound runner.
func (s Scope) Run(cfg *runner.Config) (*runner.Result, error) {
	return s.runner.Run(*cfg)
}

// Output runs command quietly and returns its cleaned output.
func (s Scope) Output(command string) (string, error) {
	res, err := s.Run(runner.Cmd(command).WithQuiet())
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// Test runs command and reports whether it exited zero.
func (s Scope) Test(command string) (bool, error) {
	return s.runner.Test(command)
}

// IO holds the scopes for talking to the user.
type IO struct {
	Info    Scope
	Verbose Scope
	Ctx     *printer.Context
	Shims   *runner.Shims
}

// Options configures NewIO.
type Options struct {
	Verbose bool
	Logger  *slog.Logger
	Workdir string
	Shell   string
	// Out overrides the diagnostic writer, stderr by default.
	Out io.Writer
	// Shims, when set, is shared by both scopes.
	Shims *runner.Shims
}

// NewIO creates Info and Verbose scopes sharing one print context.
func NewIO(opts Options) *IO {
	ctx := printer.NewContext(opts.Verbose, opts.Logger)
	if opts.Out != nil {
		ctx.Out = opts.Out
		ctx.Color = false
	}
	workdir := opts.Workdir
	if workdir == "" {
		workdir = "."
	}

	info := New(printer.NewInfo(ctx), workdir, opts.Shims)
	verbose := New(printer.NewVerbose(ctx), workdir, opts.Shims)
	info.runner.Shell = opts.Shell
	verbose.runner.Shell = opts.Shell

	return &IO{Info: info, Verbose: verbose, Ctx: ctx, Shims: opts.Shims}
}

// NoOutput returns a scope that prints nothing.
func NoOutput(shims *runner.Shims) Scope {
	return New(printer.Silent{}, ".", shims)
}

// Defaults returns a scope printing raw, unindented text to w.
func Defaults(w io.Writer) Scope {
	return New(printer.Plain{W: w}, ".", nil)
}
