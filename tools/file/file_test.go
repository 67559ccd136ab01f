package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
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

func TestWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	got := write(context.Background(), inv(tatty.ActionWrite, map[string]any{
		"file_path": "out.txt", "content": "hello",
	}), testEnv(dir))
	if got != "Successfully wrote out.txt" {
		t.Fatalf("unexpected result: %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "out.txt"))
	if string(data) != "hello" {
		t.Errorf("wrong content: %s", data)
	}
}

func TestWriteCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	write(context.Background(), inv(tatty.ActionWrite, map[string]any{
		"file_path": "a/b/c.txt", "content": "nested",
	}), testEnv(dir))
	data, _ := os.ReadFile(filepath.Join(dir, "a/b/c.txt"))
	if string(data) != "nested" {
		t.Errorf("wrong content: %s", data)
	}
}

func TestReadNumbersLines(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("alpha\nbeta\n"), 0o644)
	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{"file_path": "f.txt"}), testEnv(dir))
	want := "     1|alpha\n     2|beta"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadMissingFile(t *testing.T) {
	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{"file_path": "nope.txt"}), testEnv(t.TempDir()))
	if got != "File not found: nope.txt" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestReadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644)
	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{"file_path": "empty.txt"}), testEnv(dir))
	if got != "Empty file" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestReadWindowAndTruncationNotice(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte(b.String()), 0o644)

	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{
		"file_path": "f.txt", "offset": 5, "limit": 3,
	}), testEnv(dir))

	if !strings.Contains(got, "     6|line 6") || !strings.Contains(got, "     8|line 8") {
		t.Errorf("window wrong:\n%s", got)
	}
	if strings.Contains(got, "line 9\n") {
		t.Errorf("window leaked past limit:\n%s", got)
	}
	if !strings.Contains(got, "showing lines 6-8 of 20 total lines (12 lines remaining)") {
		t.Errorf("missing truncation notice:\n%s", got)
	}
	if !strings.Contains(got, "offset=8, limit=12") {
		t.Errorf("missing continuation hint:\n%s", got)
	}
}

func TestReadTruncatesLongLines(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("x", 25000)
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte(long+"\n"), 0o644)
	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{"file_path": "f.txt"}), testEnv(dir))
	if !strings.Contains(got, "... [line truncated at 20k characters]") {
		t.Errorf("long line not truncated")
	}
	if len(got) > 21000 {
		t.Errorf("output too long: %d chars", len(got))
	}
}

func TestEditReplacesOnce(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("aaa bbb ccc"), 0o644)
	got := edit(context.Background(), inv(tatty.ActionEdit, map[string]any{
		"file_path": "f.txt", "old_string": "bbb", "new_string": "xxx",
	}), testEnv(dir))
	if got != "Successfully edited f.txt (1 replacement(s))" {
		t.Fatalf("unexpected result: %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(data) != "aaa xxx ccc" {
		t.Errorf("wrong content: %s", data)
	}
}

func TestEditRejectsAmbiguousMatch(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("dup dup"), 0o644)
	got := edit(context.Background(), inv(tatty.ActionEdit, map[string]any{
		"file_path": "f.txt", "old_string": "dup", "new_string": "x",
	}), testEnv(dir))
	if got != "Error: old_string is not unique in file (found 2 occurrences)" {
		t.Errorf("unexpected result: %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(data) != "dup dup" {
		t.Errorf("file modified despite error: %s", data)
	}
}

func TestEditReplaceAll(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("dup dup dup"), 0o644)
	got := edit(context.Background(), inv(tatty.ActionEdit, map[string]any{
		"file_path": "f.txt", "old_string": "dup", "new_string": "x", "replace_all": true,
	}), testEnv(dir))
	if got != "Successfully edited f.txt (3 replacement(s))" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestEditOldStringMissing(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("content"), 0o644)
	got := edit(context.Background(), inv(tatty.ActionEdit, map[string]any{
		"file_path": "f.txt", "old_string": "absent", "new_string": "x",
	}), testEnv(dir))
	if got != "Error: old_string not found in file" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestMultiEditAppliesSequentially(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("one two"), 0o644)
	got := multiEdit(context.Background(), inv(tatty.ActionMultiEdit, map[string]any{
		"file_path": "f.txt",
		"edits": []map[string]any{
			{"old_string": "one", "new_string": "1"},
			{"old_string": "1 two", "new_string": "1 2"},
		},
	}), testEnv(dir))
	if got != "Successfully applied 2 edits to f.txt" {
		t.Fatalf("unexpected result: %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(data) != "1 2" {
		t.Errorf("wrong content: %s", data)
	}
}

func TestMultiEditAbortsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("one two"), 0o644)
	got := multiEdit(context.Background(), inv(tatty.ActionMultiEdit, map[string]any{
		"file_path": "f.txt",
		"edits": []map[string]any{
			{"old_string": "one", "new_string": "1"},
			{"old_string": "missing", "new_string": "x"},
		},
	}), testEnv(dir))
	if got != "Error in edit 2: old_string not found" {
		t.Fatalf("unexpected result: %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(data) != "one two" {
		t.Errorf("file modified despite failed batch: %s", data)
	}
}

func TestReadAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "abs.txt")
	os.WriteFile(abs, []byte("direct"), 0o644)
	got := read(context.Background(), inv(tatty.ActionRead, map[string]any{"file_path": abs}), testEnv(t.TempDir()))
	if !strings.Contains(got, "     1|direct") {
		t.Errorf("absolute path not honored: %s", got)
	}
}
