package dev

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func testEnv(dir string) tatty.Env {
	return tatty.Env{WorkingDir: dir, Todos: &tatty.TodoList{}, Interrupt: &tatty.Interrupt{}}
}

func inv(action tatty.Action, params map[string]any) tatty.Invocation {
	args, _ := json.Marshal(params)
	return tatty.Invocation{Action: action, Args: args}
}

func TestHeadTail(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6"}

	short := headTail(lines, 4, 2, "...")
	if len(short) != 6 {
		t.Errorf("short input should pass through, got %v", short)
	}

	long := headTail(lines, 2, 2, "snip")
	want := []string{"1", "2", "snip", "5", "6"}
	if len(long) != 5 {
		t.Fatalf("got %v", long)
	}
	for i := range want {
		if long[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, long[i], want[i])
		}
	}
}

func TestTypeCheckUnknownChecker(t *testing.T) {
	got := typeCheck(context.Background(), inv(tatty.ActionTypeCheck, map[string]any{"checker": "flow"}), testEnv(t.TempDir()))
	if got != "Error: Unknown type checker 'flow'. Use 'mypy' or 'pyright'" {
		t.Errorf("got %q", got)
	}
}

func TestFormatUnknownFormatter(t *testing.T) {
	got := format(context.Background(), inv(tatty.ActionFormat, map[string]any{"formatter": "prettier"}), testEnv(t.TempDir()))
	if got != "Error: Unknown formatter 'prettier'. Use 'ruff' or 'black'" {
		t.Errorf("got %q", got)
	}
}

func TestDependencyUnknownManager(t *testing.T) {
	got := dependency(context.Background(), inv(tatty.ActionDependency, map[string]any{
		"action": "install", "manager": "cargo",
	}), testEnv(t.TempDir()))
	if got != "Error: Unknown package manager 'cargo'. Use 'uv' or 'pip'" {
		t.Errorf("got %q", got)
	}
}

func TestDependencyUnknownAction(t *testing.T) {
	got := dependency(context.Background(), inv(tatty.ActionDependency, map[string]any{
		"action": "explode", "manager": "uv",
	}), testEnv(t.TempDir()))
	if got != "Error: Unknown action 'explode' for uv" {
		t.Errorf("got %q", got)
	}
}

func TestGitDiffOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	got := gitDiff(context.Background(), inv(tatty.ActionGitDiff, nil), testEnv(t.TempDir()))
	if !strings.Contains(got, "Git diff failed") {
		t.Errorf("expected failure outside a repository: %q", got)
	}
}

func TestGitDiffCleanRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "-C", dir, "init").CombinedOutput(); err != nil {
		t.Skipf("git init failed: %s", out)
	}

	got := gitDiff(context.Background(), inv(tatty.ActionGitDiff, map[string]any{"no_color": true}), testEnv(dir))
	if !strings.Contains(got, "No differences found") {
		t.Errorf("expected empty diff: %q", got)
	}
	if !strings.Contains(got, "Command: git diff --no-color") {
		t.Errorf("missing command echo: %q", got)
	}
}

func TestToolsInterruptedMidRun(t *testing.T) {
	env := testEnv(t.TempDir())
	env.Interrupt.Request()

	// Every dev tool that shells out reports the interrupt instead of
	// its own output.
	handlers := map[string]func(context.Context, tatty.Invocation, tatty.Env) string{
		"pytest":  pytestRun,
		"lint":    lint,
		"gitdiff": gitDiff,
	}
	for name, h := range handlers {
		if got := h(context.Background(), inv(tatty.ActionPytestRun, nil), env); got != tatty.InterruptedMessage {
			t.Errorf("%s: got %q", name, got)
		}
	}
}
