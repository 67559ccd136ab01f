// Package system provides the shell and filesystem inspection tools:
// Bash command execution, Glob file matching, Grep content search via
// ripgrep, and LS directory listing.
package system

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tatty "github.com/nevindra/tatty"
	"github.com/nevindra/tatty/proc"
)

// Register installs the system tool handlers on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionBash, bash)
	reg.Register(tatty.ActionGlob, globFiles)
	reg.Register(tatty.ActionGrep, grep)
	reg.Register(tatty.ActionLS, list)
}

type bashParams struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"` // milliseconds
}

func bash(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p bashParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error executing command: " + err.Error()
	}
	if p.Command == "" {
		return "Error executing command: command is required"
	}

	timeout := proc.DefaultTimeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Millisecond
	}

	res := proc.Run(ctx, proc.Command{Shell: p.Command, Dir: env.WorkingDir}, timeout, env.Interrupt.Requested)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return fmt.Sprintf("Command timed out after %dms", timeout.Milliseconds())
	}

	output := res.Stdout
	if res.Stderr != "" {
		output += "\nSTDERR: " + res.Stderr
	}
	if res.ExitCode != 0 {
		output += fmt.Sprintf("\nExit code: %d", res.ExitCode)
	}
	if output == "" {
		return "Command executed successfully (no output)"
	}
	return output
}

type globParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

func globFiles(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p globParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error executing glob: " + err.Error()
	}
	if p.Pattern == "" {
		return "Error executing glob: pattern is required"
	}

	root := p.Path
	if root == "" {
		root = env.WorkingDir
	}

	matches, err := findMatches(root, p.Pattern)
	if err != nil {
		return "Error executing glob: " + err.Error()
	}
	if len(matches) == 0 {
		return "No files found matching pattern: " + p.Pattern
	}

	// Newest first, so the decision service sees recently touched files at
	// the top.
	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime.After(matches[j].modTime) })
	if len(matches) > 50 {
		matches = matches[:50]
	}

	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, relativize(m.path, env.WorkingDir))
	}
	return strings.Join(lines, "\n")
}

type globMatch struct {
	path    string
	modTime time.Time
}

// findMatches walks root and collects files whose path relative to root
// matches pattern. A "**/" segment matches any number of directories,
// including none.
func findMatches(root, pattern string) ([]globMatch, error) {
	var out []globMatch
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if matchPattern(pattern, filepath.ToSlash(rel)) {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			out = append(out, globMatch{path: p, modTime: info.ModTime()})
		}
		return nil
	})
	return out, err
}

func matchPattern(pattern, rel string) bool {
	i := strings.Index(pattern, "**/")
	if i < 0 {
		ok, _ := path.Match(pattern, rel)
		return ok
	}

	prefix, suffix := pattern[:i], pattern[i+3:]
	if prefix != "" {
		if !strings.HasPrefix(rel, prefix) {
			return false
		}
		rel = rel[len(prefix):]
	}

	// Try the suffix against every directory depth under the prefix,
	// including zero directories deep.
	parts := strings.Split(rel, "/")
	for j := range parts {
		if ok, _ := path.Match(suffix, strings.Join(parts[j:], "/")); ok {
			return true
		}
	}
	return false
}

func relativize(p, workingDir string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	absWd, err := filepath.Abs(workingDir)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(absWd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

type grepParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Include string `json:"include"`
}

func grep(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p grepParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error executing grep: " + err.Error()
	}
	if p.Pattern == "" {
		return "Error executing grep: pattern is required"
	}

	searchPath := p.Path
	if searchPath == "" {
		searchPath = env.WorkingDir
	}

	argv := []string{"rg", p.Pattern, searchPath, "--files-with-matches"}
	if p.Include != "" {
		argv = append(argv, "--glob", p.Include)
	}

	res := proc.Run(ctx, proc.Command{Argv: argv, Dir: env.WorkingDir}, 10*time.Second, env.Interrupt.Requested)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return "Error executing grep: search timed out after 10s"
	}

	switch res.ExitCode {
	case 0:
		files := strings.Split(strings.TrimSpace(res.Stdout), "\n")
		if len(files) > 50 {
			files = files[:50]
		}
		for i, f := range files {
			files[i] = relativize(f, env.WorkingDir)
		}
		return strings.Join(files, "\n")
	case 1:
		return "No matches found for pattern: " + p.Pattern
	default:
		if strings.Contains(res.Stderr, "executable file not found") {
			return "Error: ripgrep (rg) not found. Please install ripgrep."
		}
		return "Error: " + res.Stderr
	}
}

type lsParams struct {
	Path   string   `json:"path"`
	Ignore []string `json:"ignore"`
}

func list(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p lsParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error listing directory: " + err.Error()
	}

	dir := p.Path
	if dir == "" {
		dir = env.WorkingDir
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "Directory not found: " + p.Path
		}
		return "Error listing directory: " + err.Error()
	}
	if !info.IsDir() {
		return "Not a directory: " + p.Path
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "Error listing directory: " + err.Error()
	}

	var items []string
entries:
	for _, e := range entries {
		for _, pat := range p.Ignore {
			if ok, _ := path.Match(pat, e.Name()); ok {
				continue entries
			}
		}
		kind := "FILE"
		if e.IsDir() {
			kind = "DIR "
		}
		items = append(items, kind+" "+e.Name())
	}

	if len(items) == 0 {
		return "Empty directory"
	}
	sort.Strings(items)
	return strings.Join(items, "\n")
}
