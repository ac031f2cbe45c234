// Package picker lets the user choose one target from a list in the terminal.
package picker

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user quits without choosing.
var ErrAborted = errors.New("selection aborted")

// Item is one selectable line.
type Item struct {
	Title  string
	Detail string
}

// Model is the bubbletea model for the picker.
type Model struct {
	prompt  string
	items   []Item
	cursor  int
	chosen  int
	aborted bool
}

// NewModel creates a picker over items.
func NewModel(prompt string, items []Item) Model {
	return Model{prompt: prompt, items: items, chosen: -1}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) > 0 {
			m.chosen = m.cursor
		}
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the list with the cursor on the current item.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.prompt)
	b.WriteString("\n\n")
	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", cursor, item.Title)
		if item.Detail != "" {
			fmt.Fprintf(&b, "    %s\n", item.Detail)
		}
	}
	b.WriteString("\n↑/↓ move • enter select • q quit\n")
	return b.String()
}

// Chosen returns the selected index, or -1.
func (m Model) Chosen() int {
	return m.chosen
}

// Run shows the picker and returns the chosen index.
func Run(prompt string, items []Item, opts ...tea.ProgramOption) (int, error) {
	final, err := tea.NewProgram(NewModel(prompt, items), opts...).Run()
	if err != nil {
		return -1, fmt.Errorf("picker: %w", err)
	}
	m := final.(Model)
	if m.aborted || m.chosen < 0 {
		return -1, ErrAborted
	}
	return m.chosen, nil
}
