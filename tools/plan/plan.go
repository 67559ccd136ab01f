// Package plan provides the planning tools: TodoRead and TodoWrite over
// the run's task list, and ExitPlanMode for surfacing a plan for
// approval.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tatty "github.com/nevindra/tatty"
)

// Register installs the planning tool handlers on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionTodoRead, todoRead)
	reg.Register(tatty.ActionTodoWrite, todoWrite)
	reg.Register(tatty.ActionExitPlanMode, exitPlanMode)
}

func statusIcon(s tatty.TodoStatus) string {
	switch s {
	case tatty.TodoCompleted:
		return "✓"
	case tatty.TodoInProgress:
		return "→"
	default:
		return "○"
	}
}

func todoRead(_ context.Context, _ tatty.Invocation, env tatty.Env) string {
	items := env.Todos.Items()
	if len(items) == 0 {
		return "No todos currently tracked"
	}

	lines := make([]string, 0, len(items))
	for _, t := range items {
		lines = append(lines, fmt.Sprintf("%s [%s] %s (id: %s, status: %s)", statusIcon(t.Status), t.Priority, t.Content, t.ID, t.Status))
	}
	return fmt.Sprintf("Current todos (%d):\n%s", len(items), strings.Join(lines, "\n"))
}

type todoWriteParams struct {
	Todos []tatty.TodoItem `json:"todos"`
}

func todoWrite(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p todoWriteParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error updating todos: " + err.Error()
	}

	env.Todos.Replace(p.Todos)

	lines := make([]string, 0, len(p.Todos))
	for _, t := range p.Todos {
		lines = append(lines, fmt.Sprintf("%s [%s] %s (id: %s)", statusIcon(t.Status), t.Priority, t.Content, t.ID))
	}
	return fmt.Sprintf("Updated %d todos:\n%s", len(p.Todos), strings.Join(lines, "\n"))
}

type exitPlanParams struct {
	Plan string `json:"plan"`
}

func exitPlanMode(_ context.Context, inv tatty.Invocation, _ tatty.Env) string {
	var p exitPlanParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error presenting plan: " + err.Error()
	}
	return fmt.Sprintf("Plan presented to user:\n%s\n\nWaiting for user approval...", p.Plan)
}
