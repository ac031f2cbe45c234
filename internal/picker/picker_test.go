package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyJ     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}
)

func testItems() []Item {
	return []Item{
		{Title: "Example Domain", Detail: "https://example.com/"},
		{Title: "Docs", Detail: "https://example.com/docs"},
		{Title: "New Tab"},
	}
}

func TestModel_NavigateAndSelect(t *testing.T) {
	t.Parallel()

	m, cmd := press(NewModel("Select a page", testItems()), keyDown, keyJ, keyUp, keyEnter)
	if m.Chosen() != 1 {
		t.Errorf("expected index 1, got %d", m.Chosen())
	}
	if cmd == nil {
		t.Fatal("expected quit command after enter")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	t.Parallel()

	m, _ := press(NewModel("", testItems()), keyUp, keyUp)
	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}

	m, _ = press(m, keyDown, keyDown, keyDown, keyDown)
	if m.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.cursor)
	}
}

func TestModel_Abort(t *testing.T) {
	t.Parallel()

	m, cmd := press(NewModel("", testItems()), keyDown, keyEsc)
	if !m.aborted || m.Chosen() != -1 {
		t.Errorf("expected aborted without choice, got aborted=%t chosen=%d", m.aborted, m.Chosen())
	}
	if cmd == nil {
		t.Error("expected quit command after esc")
	}
}

func TestModel_View(t *testing.T) {
	t.Parallel()

	m, _ := press(NewModel("Select a page", testItems()), keyDown)
	view := m.View()

	if !strings.HasPrefix(view, "Select a page\n") {
		t.Errorf("expected prompt first, got:\n%s", view)
	}
	if !strings.Contains(view, "> Docs\n") {
		t.Errorf("expected cursor on Docs, got:\n%s", view)
	}
	if !strings.Contains(view, "    https://example.com/\n") {
		t.Errorf("expected detail line, got:\n%s", view)
	}
}
