package prompt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TimeoutPrompt asks for one line, giving up after seconds. It returns
// def when the wait elapses or the answer is empty. On timeout, input
// typed but not yet submitted is discarded.
func (p *Prompter) TimeoutPrompt(prompt string, seconds int, def string) string {
	notes := p.notes()
	notes.Print(fmt.Sprintf("timeout=%ds, defaults_to=%s, prompt=", seconds, def))
	fmt.Fprintf(p.out(), "%s ❯ ", prompt)

	line, ok := p.readLineWithin(p.in(), time.Duration(seconds)*time.Second)
	if !ok {
		notes.Print(fmt.Sprintf("\n...timed out, using %s", def))
		if f, isFile := p.in().(*os.File); isFile {
			discardPending(f)
		}
		return def
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return def
	}
	return answer
}

// readLineWithin reads a line from r if one starts arriving within d.
func (p *Prompter) readLineWithin(r io.Reader, d time.Duration) (string, bool) {
	if f, ok := r.(*os.File); ok && canPoll {
		ready, err := waitReadable(f, d)
		if err != nil || !ready {
			return "", false
		}
		return readLine(f), true
	}

	// Readers that can't be polled are read in the background. A read
	// still blocked after the deadline is kept and picked up by the next
	// prompt, so only one goroutine ever reads from r.
	if p.pending == nil {
		ch := make(chan string, 1)
		go func() { ch <- readLine(r) }()
		p.pending = ch
	}
	select {
	case line := <-p.pending:
		p.pending = nil
		return line, true
	case <-time.After(d):
		return "", false
	}
}

// readLine reads up to and including a newline, one byte at a time so
// nothing past the line is consumed.
func readLine(r io.Reader) string {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return b.String()
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String()
		}
	}
}
