package prompt

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	questionStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const separator = "───────────────"

type choiceItem struct {
	label     string
	separator bool
}

// choiceModel is a single-select list.
type choiceModel struct {
	question string
	items    []choiceItem
	cursor   int
	chosen   string
	aborted  bool
}

func newChoiceModel(question string, options, other []string) choiceModel {
	m := choiceModel{question: question}
	seen := make(map[string]bool)
	add := func(list []string) {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			m.items = append(m.items, choiceItem{label: s})
		}
	}
	add(options)
	if len(other) > 0 {
		m.items = append(m.items, choiceItem{separator: true})
		add(other)
	}
	m.cursor = m.next(-1, 1)
	return m
}

func (m choiceModel) selectable() int {
	n := 0
	for _, it := range m.items {
		if !it.separator {
			n++
		}
	}
	return n
}

// next returns the first selectable index from start+dir in direction
// dir, or start if there is none.
func (m choiceModel) next(start, dir int) int {
	for i := start + dir; i >= 0 && i < len(m.items); i += dir {
		if !m.items[i].separator {
			return i
		}
	}
	return start
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k", "shift+tab":
		m.cursor = m.next(m.cursor, -1)
	case "down", "j", "tab":
		m.cursor = m.next(m.cursor, 1)
	case "enter":
		if m.cursor >= 0 && m.cursor < len(m.items) {
			m.chosen = m.items[m.cursor].label
			return m, tea.Quit
		}
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.chosen != "" || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(questionStyle.Render("? "+m.question) + "\n")
	for i, it := range m.items {
		switch {
		case it.separator:
			b.WriteString("  " + separatorStyle.Render(separator) + "\n")
		case i == m.cursor:
			b.WriteString(cursorStyle.Render("❯ "+it.label) + "\n")
		default:
			b.WriteString("  " + it.label + "\n")
		}
	}
	return b.String()
}
