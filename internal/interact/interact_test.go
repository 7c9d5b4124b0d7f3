package interact

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNonInteractiveDefaults(t *testing.T) {
	var p NonInteractive
	ok, err := p.Confirm(context.Background(), "fix crypto flags?")
	if err != nil || ok {
		t.Fatalf("expected Confirm to default to false, got %v, %v", ok, err)
	}
	idx, err := p.Select(context.Background(), "choose", []string{"a", "b", "c"})
	if err != nil || idx != 0 {
		t.Fatalf("expected Select to default to 0, got %v, %v", idx, err)
	}
}

func TestSelectModelNavigatesAndConfirms(t *testing.T) {
	m := newSelectModel("pick one", []string{"Fix", "Skip", "Always fix", "Never fix"})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(selectModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(selectModel)
	if m.cursor != 2 {
		t.Fatalf("expected cursor at 2 after two down-presses, got %d", m.cursor)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(selectModel)
	if !m.done || cmd == nil {
		t.Fatalf("expected Enter to finish the model with a quit command")
	}
}

func TestSelectModelEscCancels(t *testing.T) {
	m := newSelectModel("pick one", []string{"Yes", "No"})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(selectModel)
	if !m.cancelled || cmd == nil {
		t.Fatalf("expected Esc to cancel the model")
	}
}

func TestSelectModelCursorClampedAtBounds(t *testing.T) {
	m := newSelectModel("pick one", []string{"only"})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(selectModel)
	if m.cursor != 0 {
		t.Fatalf("expected cursor to stay at 0 with a single option, got %d", m.cursor)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(selectModel)
	if m.cursor != 0 {
		t.Fatalf("expected cursor to stay at 0, got %d", m.cursor)
	}
}
