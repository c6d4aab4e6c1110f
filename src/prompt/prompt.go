// Package prompt asks the user questions on the terminal.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wow-look-at-my/airfilter/src/printer"
)

// TimedOut is the conventional default for TimeoutPrompt.
const TimedOut = "timed_out"

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter reads answers from In and draws prompts on Out.
type Prompter struct {
	In  io.Reader // Defaults to os.Stdin
	Out io.Writer // Defaults to os.Stderr
	// Notes receives status lines such as timeout notices. Defaults to
	// raw output on Out.
	Notes printer.Printer

	// pending is a line read from In that outlived a TimeoutPrompt.
	pending chan string
}

// New returns a Prompter on stdin and stderr.
func New() *Prompter {
	return &Prompter{}
}

func (p *Prompter) in() io.Reader {
	if p.In == nil {
		return os.Stdin
	}
	return p.In
}

func (p *Prompter) out() io.Writer {
	if p.Out == nil {
		return os.Stderr
	}
	return p.Out
}

func (p *Prompter) notes() printer.Printer {
	if p.Notes == nil {
		return printer.Plain{W: p.out()}
	}
	return p.Notes
}

func (p *Prompter) run(m tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(m, tea.WithInput(p.in()), tea.WithOutput(p.out()))
	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}

// YesNo asks a yes/no question.
func (p *Prompter) YesNo(question string) (bool, error) {
	answer, err := p.choose(newChoiceModel(question, []string{"Yes", "No"}, nil))
	if err != nil {
		return false, err
	}
	return answer == "Yes", nil
}

// GetString asks for free text, asking again until it matches re. A nil
// re accepts anything.
func (p *Prompter) GetString(prompt string, re *regexp.Regexp) (string, error) {
	final, err := p.run(newInputModel(prompt, re))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.aborted {
		return "", ErrAborted
	}
	return m.value, nil
}

// Choose asks the user to pick one of options. Entries of other are
// listed after a separator. Duplicates are dropped.
func (p *Prompter) Choose(question string, options, other []string) (string, error) {
	return p.choose(newChoiceModel(question, options, other))
}

func (p *Prompter) choose(m choiceModel) (string, error) {
	if m.selectable() == 0 {
		return "", fmt.Errorf("nothing to choose for %q", m.question)
	}
	final, err := p.run(m)
	if err != nil {
		return "", err
	}
	cm := final.(choiceModel)
	if cm.aborted {
		return "", ErrAborted
	}
	return cm.chosen, nil
}
