package tui

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/dashboard"
	"github.com/nexport/opsdash/internal/severity"
)

// todoBoard builds a board with two to-do probes whose interpreters are
// supplied per widget ID.
func todoBoard(interpret map[string]dashboard.InterpretFunc) *dashboard.Board {
	everyone := func(access.Capabilities) bool { return true }
	registry := []dashboard.Descriptor{
		{ID: "todo-x", Section: dashboard.SectionTodo, Title: "X", Visible: everyone, Interpret: interpret["todo-x"]},
		{ID: "todo-y", Section: dashboard.SectionTodo, Title: "Y", Visible: everyone, Interpret: interpret["todo-y"]},
	}
	return dashboard.NewBoard(registry, access.Capabilities{Admin: true})
}

func oneEntry(text string) dashboard.InterpretFunc {
	return func(json.RawMessage) (dashboard.Evaluation, error) {
		return dashboard.Evaluation{
			Count: 1,
			Todo:  &dashboard.TodoEntry{Severity: severity.TierHigh, Text: text, Label: "Review"},
		}, nil
	}
}

func noEntry(json.RawMessage) (dashboard.Evaluation, error) {
	return dashboard.Evaluation{}, nil
}

// TestTodoPlaceholderLifecycle walks the placeholder through the list's
// life: shown while empty and pending, gone once the first entry lands,
// and never back, even with probes still outstanding.
func TestTodoPlaceholderLifecycle(t *testing.T) {
	board := todoBoard(map[string]dashboard.InterpretFunc{
		"todo-x": oneEntry("review material requests"),
		"todo-y": oneEntry("pay installments"),
	})

	out := renderTodo(board, "*")
	if !strings.Contains(out, "collecting") {
		t.Errorf("empty pending list = %q, want the loading placeholder", out)
	}

	board.Apply("todo-x", json.RawMessage(`{}`), nil)
	out = renderTodo(board, "*")
	if !strings.Contains(out, "review material requests") {
		t.Errorf("list = %q, want the first entry", out)
	}
	if strings.Contains(out, "collecting") {
		t.Errorf("list with an entry = %q, placeholder must not render below entries", out)
	}

	board.Apply("todo-y", json.RawMessage(`{}`), nil)
	out = renderTodo(board, "*")
	if strings.Contains(out, "collecting") || strings.Contains(out, "All caught up") {
		t.Errorf("settled list with entries = %q, want entries only", out)
	}
}

// TestTodoAllCaughtUp: the success state needs every probe settled with
// no entries; half-settled empty lists still show the placeholder.
func TestTodoAllCaughtUp(t *testing.T) {
	board := todoBoard(map[string]dashboard.InterpretFunc{
		"todo-x": noEntry,
		"todo-y": noEntry,
	})

	board.Apply("todo-x", json.RawMessage(`{}`), nil)
	out := renderTodo(board, "*")
	if !strings.Contains(out, "collecting") {
		t.Errorf("half-settled empty list = %q, want the placeholder", out)
	}
	if strings.Contains(out, "All caught up") {
		t.Errorf("half-settled empty list = %q, success state claimed early", out)
	}

	board.Apply("todo-y", json.RawMessage(`{}`), nil)
	out = renderTodo(board, "*")
	if !strings.Contains(out, "All caught up") {
		t.Errorf("settled empty list = %q, want the success state", out)
	}
}
