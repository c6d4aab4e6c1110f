package runner

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrNoExpectation is returned when a command runs while shims are
// enabled but none is queued. Tests must register every command.
var ErrNoExpectation = errors.New("shim: no expectation left for command")

// Mismatch is returned when a command does not match the next expected
// shim.
type Mismatch struct {
	Expected string
	Got      string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("shim mismatch: expected %s got %q", m.Expected, m.Got)
}

// Reply is what a shim hands back in place of running a command.
type Reply struct {
	Output   string
	Stderr   string
	ExitCode int
}

// Handler produces the reply for a matched command. match holds the
// pattern's submatches, match[0] being the whole match.
type Handler func(command string, match []string, cfg Config) Reply

// Shim stands in for one expected command.
type Shim struct {
	pattern string
	re      *regexp.Regexp
	handler Handler
}

// Expect creates a shim for commands matching pattern. A nil handler
// replies with empty successful output. It panics if pattern does not
// compile.
func Expect(pattern string, handler Handler) Shim {
	if handler == nil {
		handler = func(string, []string, Config) Reply { return Reply{} }
	}
	return Shim{pattern: pattern, re: regexp.MustCompile(pattern), handler: handler}
}

// Respond creates a shim that always succeeds with output.
func Respond(pattern, output string) Shim {
	return Expect(pattern, func(string, []string, Config) Reply {
		return Reply{Output: output}
	})
}

// Fail creates a shim that exits with code after printing output.
func Fail(pattern, output string, code int) Shim {
	return Expect(pattern, func(string, []string, Config) Reply {
		return Reply{Output: output, ExitCode: code}
	})
}

// Match returns the submatches of command, or nil.
func (s Shim) Match(command string) []string {
	return s.re.FindStringSubmatch(command)
}

func (s Shim) String() string {
	return fmt.Sprintf("<Shim `%s`>", s.pattern)
}

// Shims replaces command execution with queued expectations. Commands
// must arrive in the order their shims were registered.
type Shims struct {
	enabled bool
	queue   []Shim // pushed at the front, popped from the back
	log     []string
}

// NewShims returns a disabled, empty shim queue.
func NewShims() *Shims {
	return &Shims{}
}

// Enable routes commands to the queue. With reset, queued shims and the
// log are discarded.
func (s *Shims) Enable(reset bool) {
	s.enabled = true
	if reset {
		s.queue = nil
		s.log = nil
	}
}

// Disable goes back to running real commands.
func (s *Shims) Disable() {
	s.enabled = false
}

// Enabled reports whether commands are being shimmed. It is false for a
// nil receiver.
func (s *Shims) Enabled() bool {
	return s != nil && s.enabled
}

// Expect queues shims, to be consumed in the order given.
func (s *Shims) Expect(shims ...Shim) {
	for _, shim := range shims {
		s.queue = append([]Shim{shim}, s.queue...)
	}
}

// Pending returns how many shims have not been consumed.
func (s *Shims) Pending() int {
	return len(s.queue)
}

// Log returns the commands matched so far, in order.
func (s *Shims) Log() []string {
	return append([]string(nil), s.log...)
}

// Run consumes the next shim for command.
func (s *Shims) Run(command string, cfg Config) (Reply, error) {
	if len(s.queue) == 0 {
		return Reply{}, fmt.Errorf("%w: %q", ErrNoExpectation, command)
	}
	shim := s.queue[len(s.queue)-1]
	s.queue = s.queue[:len(s.queue)-1]

	match := shim.Match(command)
	if match == nil {
		return Reply{}, &Mismatch{Expected: shim.String(), Got: command}
	}
	s.log = append(s.log, command)
	return shim.handler(command, match, cfg), nil
}
