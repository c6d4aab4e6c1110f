package runner

import (
	"errors"
	"strings"

	"github.com/wow-look-at-my/airfilter/src/printer"
)

// DefaultShell interprets every command script.
const DefaultShell = "bash"

// Mode is the execution strategy for a command.
type Mode int

const (
	// ModeDefault runs to completion and captures output.
	ModeDefault Mode = iota
	// ModeLines starts the command and streams its output line by line.
	ModeLines
	// ModeBackground starts the command and does not wait for it.
	ModeBackground
)

func (m Mode) String() string {
	switch m {
	case ModeLines:
		return "lines"
	case ModeBackground:
		return "background"
	default:
		return "default"
	}
}

// Config specifies how to run a command. The zero value dedents the
// script, fails on a non-zero exit and merges stderr into the output.
type Config struct {
	Command string
	Workdir string            // Overrides the runner's workdir
	Env     map[string]string // Merged with current environment

	ReturnBool     bool // Report failure through Result.OK instead of an error
	KeepIndent     bool // Don't dedent the script
	AllowFailure   bool // Don't fail on a non-zero exit
	SuppressOutput bool // Don't print captured output
	LineIterator   bool // Stream output lines, see Process.Lines
	Background     bool // Start and return without waiting
	SplitStderr    bool // Capture stderr separately from stdout
}

// Cmd creates a new Config for the given shell script.
func Cmd(command string) *Config {
	return &Config{Command: command}
}

// WithWorkdir sets the directory the command runs in.
func (c *Config) WithWorkdir(dir string) *Config {
	c.Workdir = dir
	return c
}

// WithEnv adds an environment variable
func (c *Config) WithEnv(key, value string) *Config {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
	return c
}

// WithBool reports a non-zero exit as Result.OK == false.
func (c *Config) WithBool() *Config {
	c.ReturnBool = true
	return c
}

// WithKeepIndent runs the script exactly as given.
func (c *Config) WithKeepIndent() *Config {
	c.KeepIndent = true
	return c
}

// WithAllowFailure tolerates a non-zero exit.
func (c *Config) WithAllowFailure() *Config {
	c.AllowFailure = true
	return c
}

// WithQuiet suppresses printing of the captured output
func (c *Config) WithQuiet() *Config {
	c.SuppressOutput = true
	return c
}

// WithLines streams output instead of waiting for the command.
func (c *Config) WithLines() *Config {
	c.LineIterator = true
	return c
}

// WithBackground starts the command without waiting for it.
func (c *Config) WithBackground() *Config {
	c.Background = true
	return c
}

// WithSplitStderr keeps stderr out of Result.Output.
func (c *Config) WithSplitStderr() *Config {
	c.SplitStderr = true
	return c
}

// Mode returns the execution strategy. Background takes precedence when
// both Background and LineIterator are set.
func (c Config) Mode() Mode {
	switch {
	case c.Background:
		return ModeBackground
	case c.LineIterator:
		return ModeLines
	default:
		return ModeDefault
	}
}

// resolve applies the implications between options.
func (c Config) resolve() Config {
	if c.ReturnBool {
		c.AllowFailure = true
		c.SplitStderr = true
	}
	switch c.Mode() {
	case ModeLines:
		c.SplitStderr = false
		c.AllowFailure = true
	case ModeBackground:
		c.AllowFailure = true
	}
	return c
}

// Runner prints commands, runs them through a shell and prints their
// output.
type Runner struct {
	Printer printer.Printer
	Workdir string
	Shell   string // Defaults to DefaultShell
	Shims   *Shims // When enabled, commands go here instead of a shell
}

// New creates a runner bound to a printer and working directory.
func New(p printer.Printer, workdir string) *Runner {
	return &Runner{Printer: p, Workdir: workdir}
}

// Bind returns a copy of r printing through p and running in workdir.
func (r *Runner) Bind(p printer.Printer, workdir string) *Runner {
	c := *r
	c.Printer = p
	c.Workdir = workdir
	return &c
}

// Run executes cfg. A non-zero exit is returned as *ExitError unless
// cfg allows failure; with ReturnBool it is reported as Result.OK == false.
// Shim mismatches are returned regardless of cfg.
func (r *Runner) Run(cfg Config) (*Result, error) {
	cfg = cfg.resolve()
	if cfg.Workdir == "" {
		cfg.Workdir = r.Workdir
	}
	run := r.runFunc(cfg.Mode())

	script := cfg.Command
	if !cfg.KeepIndent {
		script = Dedent(script)
	}

	p := r.sink()
	p.Print(printer.Label(p, "[Command]"))

	var res *Result
	err := printer.WithSection(p, "", func() error {
		p.Print(script)

		var err error
		res, err = run(script, cfg)
		if err != nil {
			return err
		}
		res.OK = res.ExitCode == 0
		if !res.OK && !cfg.AllowFailure {
			return &ExitError{Command: script, Output: res.Output, Stderr: res.Stderr, ExitCode: res.ExitCode}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !cfg.SuppressOutput && cfg.Mode() == ModeDefault && strings.TrimSpace(res.Output) != "" {
		printOutput(p, res.Output)
	}
	return res, nil
}

func printOutput(p printer.Printer, output string) {
	p.Print(printer.Label(p, "[Output]"))
	defer printer.Section(p, "")()
	p.Print(output)
}

// Test runs command and reports whether it exited zero. Only the exit
// status maps to false; failing to run the command and shim errors are
// returned.
func (r *Runner) Test(command string) (bool, error) {
	res, err := r.Run(*Cmd(command).WithBool())
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

func (r *Runner) sink() printer.Printer {
	if r.Printer == nil {
		return printer.Silent{}
	}
	return r.Printer
}

func (r *Runner) shell() string {
	if r.Shell == "" {
		return DefaultShell
	}
	return r.Shell
}

type runFunc func(script string, cfg Config) (*Result, error)

// runFunc picks the execution strategy once per call.
func (r *Runner) runFunc(mode Mode) runFunc {
	if r.Shims.Enabled() {
		return r.runShim
	}
	switch mode {
	case ModeBackground:
		return r.runBackground
	case ModeLines:
		return r.runLines
	default:
		return r.runDefault
	}
}

func (r *Runner) runShim(script string, cfg Config) (*Result, error) {
	reply, err := r.Shims.Run(script, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode() == ModeDefault {
		out := reply.Output
		if !cfg.SplitStderr {
			out += reply.Stderr
		}
		return &Result{Command: script, Output: out, Stderr: reply.Stderr, ExitCode: reply.ExitCode}, nil
	}
	proc := finishedProcess(script, reply)
	return &Result{Command: script, Process: proc}, nil
}

// Dedent removes a single leading newline and then the whitespace common
// to every line, so commands can be written as indented raw strings.
func Dedent(script string) string {
	return printer.Dedent(strings.TrimPrefix(script, "\n"))
}

// IsExit reports whether err is a non-zero exit, returning its code.
func IsExit(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode, true
	}
	return 0, false
}
