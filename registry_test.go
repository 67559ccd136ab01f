package tatty

import (
	"context"
	"testing"
)

func dispatchEnv() Env {
	return Env{WorkingDir: ".", Todos: &TodoList{}, Interrupt: NewInterrupt()}
}

func TestDispatchUnknownAction(t *testing.T) {
	reg := NewRegistry()
	got := reg.Dispatch(context.Background(), Invocation{Action: "Teleport"}, dispatchEnv())
	if got != "Unknown tool type: Teleport" {
		t.Errorf("result = %q", got)
	}
}

func TestDispatchInterruptShortCircuits(t *testing.T) {
	called := false
	reg := NewRegistry()
	reg.Register(ActionBash, func(ctx context.Context, inv Invocation, env Env) string {
		called = true
		return "ran"
	})

	env := dispatchEnv()
	env.Interrupt.Request()

	got := reg.Dispatch(context.Background(), Invocation{Action: ActionBash}, env)
	if got != InterruptedMessage {
		t.Errorf("result = %q, want %q", got, InterruptedMessage)
	}
	if called {
		t.Error("handler ran despite interrupt")
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ActionRead, func(ctx context.Context, inv Invocation, env Env) string {
		panic("handler bug")
	})

	got := reg.Dispatch(context.Background(), Invocation{Action: ActionRead}, dispatchEnv())
	want := "Error executing Read: internal tool fault: handler bug"
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ActionLS, func(ctx context.Context, inv Invocation, env Env) string { return "first" })
	reg.Register(ActionLS, func(ctx context.Context, inv Invocation, env Env) string { return "second" })

	got := reg.Dispatch(context.Background(), Invocation{Action: ActionLS}, dispatchEnv())
	if got != "second" {
		t.Errorf("result = %q", got)
	}
}

func TestActionsListsRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ActionBash, func(ctx context.Context, inv Invocation, env Env) string { return "" })
	reg.Register(ActionGrep, func(ctx context.Context, inv Invocation, env Env) string { return "" })

	actions := reg.Actions()
	if len(actions) != 2 {
		t.Fatalf("actions = %v", actions)
	}
	seen := map[Action]bool{}
	for _, a := range actions {
		seen[a] = true
	}
	if !seen[ActionBash] || !seen[ActionGrep] {
		t.Errorf("actions = %v", actions)
	}
}
