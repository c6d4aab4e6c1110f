package runner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"
	"sync"
)

func (r *Runner) command(script string, cfg Config) *exec.Cmd {
	cmd := exec.Command(r.shell(), "-c", script)
	cmd.Dir = cfg.Workdir

	if len(cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

func (r *Runner) runDefault(script string, cfg Config) (*Result, error) {
	cmd := r.command(script, cfg)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if cfg.SplitStderr {
		cmd.Stderr = &stderr
	} else {
		cmd.Stderr = &stdout
	}

	code, err := exitStatus(cmd.Run())
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", r.shell(), err)
	}
	return &Result{Command: script, Output: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}

func (r *Runner) runLines(script string, cfg Config) (*Result, error) {
	return r.start(script, cfg)
}

func (r *Runner) runBackground(script string, cfg Config) (*Result, error) {
	return r.start(script, cfg)
}

func (r *Runner) start(script string, cfg Config) (*Result, error) {
	cmd := r.command(script, cfg)

	pr, pw := io.Pipe()
	proc := newProcess(script)
	cmd.Stdout = pw
	if cfg.SplitStderr {
		cmd.Stderr = &proc.stderr
	} else {
		cmd.Stderr = pw
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("starting %s: %w", r.shell(), err)
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		proc.read(pr)
	}()
	go func() {
		code, err := exitStatus(cmd.Wait())
		pw.Close()
		<-readDone
		proc.finish(code, err)
	}()

	return &Result{Command: script, Process: proc}, nil
}

// exitStatus splits a command error into an exit code and an error that
// prevented the command from running at all.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Process is a handle on a command started in the background or for
// line streaming.
type Process struct {
	command string

	mu      sync.Mutex
	cond    *sync.Cond
	lines   []string
	stderr  bytes.Buffer
	done    bool
	code    int
	err     error
	readErr error
	doneCh  chan struct{}
}

func newProcess(command string) *Process {
	p := &Process{command: command, doneCh: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// finishedProcess returns a Process that already exited with reply.
func finishedProcess(command string, reply Reply) *Process {
	p := newProcess(command)
	p.read(strings.NewReader(reply.Output))
	p.stderr.WriteString(reply.Stderr)
	p.finish(reply.ExitCode, nil)
	return p
}

// read collects lines from r until EOF. Lines have no length limit; a
// read error is kept for Wait and the rest of r is drained so the writer
// never blocks.
func (p *Process) read(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.mu.Lock()
			p.lines = append(p.lines, strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
			p.mu.Unlock()
			p.cond.Broadcast()
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			io.Copy(io.Discard, r)
		}
		return
	}
}

func (p *Process) finish(code int, err error) {
	p.mu.Lock()
	p.done = true
	p.code = code
	p.err = err
	p.mu.Unlock()
	p.cond.Broadcast()
	close(p.doneCh)
}

// Done is closed once the process has exited and its output is read.
func (p *Process) Done() <-chan struct{} {
	return p.doneCh
}

// Lines yields output lines from the first one, waiting for more until
// the process exits. It may be ranged over again from the start.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := 0; ; i++ {
			p.mu.Lock()
			for i >= len(p.lines) && !p.done {
				p.cond.Wait()
			}
			if i >= len(p.lines) {
				p.mu.Unlock()
				return
			}
			line := p.lines[i]
			p.mu.Unlock()

			if !yield(line) {
				return
			}
		}
	}
}

// Wait blocks until the process exits. A non-zero exit is reported in
// the result, not as an error.
func (p *Process) Wait() (*Result, error) {
	<-p.doneCh

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, fmt.Errorf("waiting for command: %w", p.err)
	}
	if p.readErr != nil {
		return nil, fmt.Errorf("reading command output: %w", p.readErr)
	}
	output := strings.Join(p.lines, "\n")
	if len(p.lines) > 0 {
		output += "\n"
	}
	return &Result{
		Command:  p.command,
		Output:   output,
		Stderr:   p.stderr.String(),
		ExitCode: p.code,
		OK:       p.code == 0,
		Process:  p,
	}, nil
}
