package plan

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func testEnv() tatty.Env {
	return tatty.Env{WorkingDir: ".", Todos: &tatty.TodoList{}, Interrupt: &tatty.Interrupt{}}
}

func inv(action tatty.Action, params map[string]any) tatty.Invocation {
	args, _ := json.Marshal(params)
	return tatty.Invocation{Action: action, Args: args}
}

func TestTodoReadEmpty(t *testing.T) {
	got := todoRead(context.Background(), inv(tatty.ActionTodoRead, nil), testEnv())
	if got != "No todos currently tracked" {
		t.Errorf("got %q", got)
	}
}

func TestTodoWriteReplacesList(t *testing.T) {
	env := testEnv()
	env.Todos.Replace([]tatty.TodoItem{{ID: "0", Content: "stale", Status: tatty.TodoPending, Priority: "low"}})

	got := todoWrite(context.Background(), inv(tatty.ActionTodoWrite, map[string]any{
		"todos": []tatty.TodoItem{
			{ID: "1", Content: "load data", Status: tatty.TodoCompleted, Priority: "high"},
			{ID: "2", Content: "plot results", Status: tatty.TodoInProgress, Priority: "medium"},
		},
	}), env)

	if !strings.HasPrefix(got, "Updated 2 todos:") {
		t.Fatalf("unexpected result: %s", got)
	}
	if !strings.Contains(got, "✓ [high] load data (id: 1)") {
		t.Errorf("completed line wrong: %q", got)
	}
	if !strings.Contains(got, "→ [medium] plot results (id: 2)") {
		t.Errorf("in-progress line wrong: %q", got)
	}

	items := env.Todos.Items()
	if len(items) != 2 || items[0].ID != "1" {
		t.Errorf("store not replaced: %+v", items)
	}
}

func TestTodoReadAfterWrite(t *testing.T) {
	env := testEnv()
	env.Todos.Replace([]tatty.TodoItem{
		{ID: "1", Content: "inspect csv", Status: tatty.TodoPending, Priority: "high"},
	})

	got := todoRead(context.Background(), inv(tatty.ActionTodoRead, nil), env)
	if !strings.HasPrefix(got, "Current todos (1):") {
		t.Fatalf("unexpected result: %s", got)
	}
	if !strings.Contains(got, "○ [high] inspect csv (id: 1, status: pending)") {
		t.Errorf("pending line wrong: %q", got)
	}
}

func TestExitPlanMode(t *testing.T) {
	got := exitPlanMode(context.Background(), inv(tatty.ActionExitPlanMode, map[string]any{
		"plan": "1. read file\n2. summarize",
	}), testEnv())
	want := "Plan presented to user:\n1. read file\n2. summarize\n\nWaiting for user approval..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
