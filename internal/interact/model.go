package interact

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	promptCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	promptDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// selectModel is the bubbletea model backing Prompt.Select (and, via a
// two-option instance, Prompt.Confirm): an up/down-navigable list that
// resolves on Enter and reports cancellation on Esc/Ctrl-C.
type selectModel struct {
	label     string
	options   []string
	cursor    int
	done      bool
	cancelled bool
}

func newSelectModel(label string, options []string) selectModel {
	return selectModel{label: label, options: options}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptLabelStyle.Render(m.label))
	b.WriteString("\n")
	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = promptCursorStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
	}
	b.WriteString(promptDimStyle.Render("\n(up/down to choose, enter to confirm, esc to cancel)\n"))
	return b.String()
}
