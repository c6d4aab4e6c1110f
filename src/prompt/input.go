package prompt

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputModel reads one line of free text, refusing values that don't
// match re.
type inputModel struct {
	prompt  string
	re      *regexp.Regexp
	input   textinput.Model
	invalid string
	value   string
	done    bool
	aborted bool
}

func newInputModel(prompt string, re *regexp.Regexp) inputModel {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()
	return inputModel{prompt: prompt, re: re, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			v := m.input.Value()
			if m.re != nil && !m.re.MatchString(v) {
				m.invalid = fmt.Sprintf("must match %s", m.re)
				return m, nil
			}
			m.value = v
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	view := questionStyle.Render("? "+m.prompt) + "\n" + m.input.View() + "\n"
	if m.invalid != "" {
		view += errorStyle.Render(m.invalid) + "\n"
	}
	return view
}
