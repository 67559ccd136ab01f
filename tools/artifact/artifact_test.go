package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func testEnv(dir string) tatty.Env {
	return tatty.Env{WorkingDir: dir, Todos: &tatty.TodoList{}, Interrupt: &tatty.Interrupt{}}
}

func run(t *testing.T, dir string, params map[string]any) string {
	t.Helper()
	args, _ := json.Marshal(params)
	return manage(context.Background(), tatty.Invocation{Action: tatty.ActionArtifactManagement, Args: args}, testEnv(dir))
}

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "scripts"), 0o755)
	os.MkdirAll(filepath.Join(dir, "data"), 0o755)
	os.WriteFile(filepath.Join(dir, "scripts", "analyze.py"), []byte("print()"), 0o644)
	os.WriteFile(filepath.Join(dir, "data", "results.csv"), []byte("a,b\n1,2"), 0o644)
	return dir
}

func TestListCountsArtifacts(t *testing.T) {
	dir := seed(t)
	got := run(t, dir, map[string]any{"action_type": "list"})

	if !strings.Contains(got, "scripts/ (1 files):") {
		t.Errorf("scripts folder wrong: %q", got)
	}
	if !strings.Contains(got, filepath.Join("scripts", "analyze.py")) {
		t.Errorf("missing script entry: %q", got)
	}
	if !strings.Contains(got, "visualization/ (folder does not exist)") {
		t.Errorf("missing absent-folder note: %q", got)
	}
	if !strings.Contains(got, "Summary: 2 total artifacts found") {
		t.Errorf("wrong summary: %q", got)
	}
}

func TestListFiltersByType(t *testing.T) {
	dir := seed(t)
	got := run(t, dir, map[string]any{"action_type": "list", "artifact_type": "data"})
	if strings.Contains(got, "analyze.py") {
		t.Errorf("type filter leaked scripts: %q", got)
	}
	if !strings.Contains(got, "results.csv") {
		t.Errorf("missing data entry: %q", got)
	}
}

func TestFindRequiresPattern(t *testing.T) {
	got := run(t, t.TempDir(), map[string]any{"action_type": "find"})
	if got != "Error: pattern parameter required for 'find' action" {
		t.Errorf("got %q", got)
	}
}

func TestFindMatchesAcrossFolders(t *testing.T) {
	dir := seed(t)
	got := run(t, dir, map[string]any{"action_type": "find", "pattern": "*.csv"})
	if !strings.Contains(got, "Found 1 matches for '*.csv':") {
		t.Errorf("wrong match count: %q", got)
	}
	if !strings.Contains(got, filepath.Join("data", "results.csv")) {
		t.Errorf("missing match: %q", got)
	}
}

func TestFindNoMatches(t *testing.T) {
	got := run(t, seed(t), map[string]any{"action_type": "find", "pattern": "*.parquet"})
	if !strings.Contains(got, "No matches found for pattern '*.parquet'") {
		t.Errorf("got %q", got)
	}
}

func TestOrganizeCreatesFolders(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "plot.png"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "helper.py"), []byte("x"), 0o644)

	got := run(t, dir, map[string]any{"action_type": "organize"})

	for _, folder := range []string{"scripts", "data", "visualization", "plots"} {
		if _, err := os.Stat(filepath.Join(dir, folder)); err != nil {
			t.Errorf("folder %s not created", folder)
		}
	}
	if !strings.Contains(got, "mv plot.png visualization/") {
		t.Errorf("missing visualization suggestion: %q", got)
	}
	if !strings.Contains(got, "mv helper.py scripts/") {
		t.Errorf("missing script suggestion: %q", got)
	}
}

func TestCleanReportsDuplicates(t *testing.T) {
	dir := seed(t)
	os.MkdirAll(filepath.Join(dir, "visualization"), 0o755)
	os.WriteFile(filepath.Join(dir, "scripts", "results.csv"), []byte("copy"), 0o644)

	got := run(t, dir, map[string]any{"action_type": "clean"})
	if !strings.Contains(got, "Found 1 potential duplicate filenames:") {
		t.Errorf("missing duplicate report: %q", got)
	}
	if !strings.Contains(got, "results.csv:") {
		t.Errorf("missing duplicate name: %q", got)
	}
	if !strings.Contains(got, "Empty folders found: visualization") {
		t.Errorf("missing empty-folder note: %q", got)
	}
}

func TestUnknownActionType(t *testing.T) {
	got := run(t, t.TempDir(), map[string]any{"action_type": "archive"})
	if got != "Error: Unknown action_type 'archive'. Use 'list', 'find', 'organize', or 'clean'" {
		t.Errorf("got %q", got)
	}
}
