// Package dev provides the development workflow tools: PytestRun, Lint,
// TypeCheck, Format, Dependency, GitDiff, and InstallPackages. Every
// tool shells out through the proc executor so long runs stay
// interruptible.
package dev

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tatty "github.com/nevindra/tatty"
	"github.com/nevindra/tatty/proc"
)

// Register installs the development tool handlers on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionPytestRun, pytestRun)
	reg.Register(tatty.ActionLint, lint)
	reg.Register(tatty.ActionTypeCheck, typeCheck)
	reg.Register(tatty.ActionFormat, format)
	reg.Register(tatty.ActionDependency, dependency)
	reg.Register(tatty.ActionGitDiff, gitDiff)
	reg.Register(tatty.ActionInstallPackages, installPackages)
}

func run(ctx context.Context, env tatty.Env, argv []string, timeout time.Duration) proc.Result {
	return proc.Run(ctx, proc.Command{Argv: argv, Dir: env.WorkingDir}, timeout, env.Interrupt.Requested)
}

func notFound(res proc.Result) bool {
	return strings.Contains(res.Stderr, "executable file not found")
}

// headTail keeps the first head and last tail lines of a long output,
// inserting note between them. Short outputs pass through whole.
func headTail(lines []string, head, tail int, note string) []string {
	if len(lines) <= head+tail {
		return lines
	}
	out := make([]string, 0, head+tail+1)
	out = append(out, lines[:head]...)
	out = append(out, note)
	out = append(out, lines[len(lines)-tail:]...)
	return out
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

type pytestParams struct {
	TestPath    string `json:"test_path"`
	Verbose     bool   `json:"verbose"`
	Capture     string `json:"capture"`
	Markers     string `json:"markers"`
	Keywords    string `json:"keywords"`
	MaxFailures int    `json:"max_failures"`
	Timeout     int    `json:"timeout"` // milliseconds
}

func pytestRun(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p pytestParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error running pytest: " + err.Error()
	}

	cmd := []string{"python", "-m", "pytest"}
	if p.TestPath != "" {
		cmd = append(cmd, p.TestPath)
	}
	if p.Verbose {
		cmd = append(cmd, "-v")
	}
	if p.Capture != "" {
		if p.Capture == "no" {
			cmd = append(cmd, "-s")
		} else {
			cmd = append(cmd, "--capture="+p.Capture)
		}
	}
	if p.Markers != "" {
		cmd = append(cmd, "-m", p.Markers)
	}
	if p.Keywords != "" {
		cmd = append(cmd, "-k", p.Keywords)
	}
	if p.MaxFailures > 0 {
		cmd = append(cmd, "--maxfail", strconv.Itoa(p.MaxFailures))
	}
	cmd = append(cmd, "--tb=short", "--no-header")

	timeout := 120 * time.Second
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Millisecond
	}

	res := run(ctx, env, cmd, timeout)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return fmt.Sprintf("Error: pytest timed out after %s. Consider using max_failures or specific test_path", timeout)
	}
	if notFound(res) {
		return "Error: pytest not found. Install with: pip install pytest"
	}

	out := []string{
		"Command: " + strings.Join(cmd, " "),
		"Working directory: " + env.WorkingDir,
		"",
	}

	if res.Stdout != "" {
		lines := splitLines(res.Stdout)
		for _, line := range lines {
			if strings.Contains(line, " passed") || strings.Contains(line, " failed") || strings.Contains(line, " error") {
				out = append(out, "Test Summary: "+line, "")
				break
			}
		}
		if len(lines) > 100 {
			out = append(out, lines[:50]...)
			out = append(out, fmt.Sprintf("\n... [Truncated: showing first 50 of %d lines]", len(lines)))
			out = append(out, "To see full output, run PytestRun with specific test_path")
			out = append(out, lines[len(lines)-20:]...)
		} else {
			out = append(out, lines...)
		}
	}

	if res.Stderr != "" {
		out = append(out, "\nErrors:")
		errLines := splitLines(res.Stderr)
		if len(errLines) > 20 {
			out = append(out, errLines[:20]...)
			out = append(out, fmt.Sprintf("... [Error output truncated: %d total lines]", len(errLines)))
		} else {
			out = append(out, errLines...)
		}
	}

	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}

type lintParams struct {
	TargetPath  string `json:"target_path"`
	Fix         bool   `json:"fix"`
	ShowFixes   bool   `json:"show_fixes"`
	SelectCodes string `json:"select_codes"`
	Ignore      string `json:"ignore"`
	Format      string `json:"format"`
}

func lint(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p lintParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error running ruff: " + err.Error()
	}

	target := p.TargetPath
	if target == "" {
		target = "."
	}

	cmd := []string{"ruff", "check", target}
	if p.Fix {
		cmd = append(cmd, "--fix")
	}
	if p.ShowFixes {
		cmd = append(cmd, "--diff", "--preview")
	}
	if p.SelectCodes != "" {
		cmd = append(cmd, "--select", p.SelectCodes)
	}
	if p.Ignore != "" {
		cmd = append(cmd, "--ignore", p.Ignore)
	}
	if p.Format != "" && p.Format != "text" {
		cmd = append(cmd, "--format", p.Format)
	}

	res := run(ctx, env, cmd, 60*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return "Error: ruff timed out. Consider using a more specific target_path"
	}
	if notFound(res) {
		return "Error: ruff not found. Install with: pip install ruff"
	}

	out := []string{
		"Command: " + strings.Join(cmd, " "),
		"Target: " + target,
		"",
	}

	if res.ExitCode == 0 {
		if p.Fix {
			out = append(out, "All fixable issues have been resolved")
		} else {
			out = append(out, "No lint issues found")
		}
		if strings.TrimSpace(res.Stdout) != "" {
			out = append(out, "Details:", strings.TrimSpace(res.Stdout))
		}
	} else if res.Stdout != "" {
		lines := splitLines(res.Stdout)
		issues := 0
		for _, line := range lines {
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "Found") {
				issues++
			}
		}
		if issues > 0 {
			if p.Fix {
				out = append(out, fmt.Sprintf("Fixed %d issues:", issues))
			} else {
				out = append(out, fmt.Sprintf("Found %d lint issues:", issues))
			}
			out = append(out, "")
		}
		note := fmt.Sprintf("\n... [Truncated: showing first 40 of %d lines]\nRun with specific target_path to focus analysis", len(lines))
		out = append(out, headTail(lines, 40, 10, note)...)
	}

	if res.Stderr != "" {
		out = append(out, "\nErrors:", res.Stderr)
	}
	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}

type typeCheckParams struct {
	Checker              string `json:"checker"`
	TargetPath           string `json:"target_path"`
	Strict               bool   `json:"strict"`
	IgnoreMissingImports bool   `json:"ignore_missing_imports"`
	Incremental          bool   `json:"incremental"`
	ConfigFile           string `json:"config_file"`
}

func typeCheck(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p typeCheckParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error running type checker: " + err.Error()
	}

	checker := p.Checker
	if checker == "" {
		checker = "mypy"
	}
	target := p.TargetPath
	if target == "" {
		target = "."
	}

	var cmd []string
	switch checker {
	case "mypy":
		cmd = []string{"mypy", target}
		if p.Strict {
			cmd = append(cmd, "--strict")
		}
		if p.IgnoreMissingImports {
			cmd = append(cmd, "--ignore-missing-imports")
		}
		if p.Incremental {
			cmd = append(cmd, "--incremental", "--cache-dir", ".mypy_cache")
		}
		if p.ConfigFile != "" {
			cmd = append(cmd, "--config-file", p.ConfigFile)
		}
	case "pyright":
		cmd = []string{"pyright", target}
		if p.Strict {
			cmd = append(cmd, "--level=error")
		}
		if p.ConfigFile != "" {
			cmd = append(cmd, "--project", p.ConfigFile)
		}
	default:
		return fmt.Sprintf("Error: Unknown type checker '%s'. Use 'mypy' or 'pyright'", checker)
	}

	res := run(ctx, env, cmd, 120*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return fmt.Sprintf("Error: %s timed out after 120s. Consider using specific target_path", checker)
	}
	if notFound(res) {
		return fmt.Sprintf("Error: %s not found. Install with: pip install %s", checker, checker)
	}

	out := []string{
		"Type Checker: " + checker,
		"Command: " + strings.Join(cmd, " "),
		"Target: " + target,
		"",
	}

	if res.ExitCode == 0 {
		out = append(out, "No type errors found")
		if res.Stdout != "" {
			out = append(out, strings.TrimSpace(res.Stdout))
		}
	} else if res.Stdout != "" {
		lines := splitLines(res.Stdout)
		errors := 0
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), "error:") {
				errors++
			}
		}
		if errors > 0 {
			out = append(out, fmt.Sprintf("Found %d type errors:", errors), "")
		}
		note := fmt.Sprintf("\n... [Truncated: showing first 25 of %d lines]\nRun with specific target_path to focus analysis", len(lines))
		out = append(out, headTail(lines, 25, 5, note)...)
	}

	if res.Stderr != "" {
		out = append(out, "\nWarnings/Errors:", res.Stderr)
	}
	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}

type formatParams struct {
	Formatter  string `json:"formatter"`
	TargetPath string `json:"target_path"`
	CheckOnly  bool   `json:"check_only"`
	Diff       bool   `json:"diff"`
	LineLength int    `json:"line_length"`
}

func format(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p formatParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error running formatter: " + err.Error()
	}

	formatter := p.Formatter
	if formatter == "" {
		formatter = "ruff"
	}
	target := p.TargetPath
	if target == "" {
		target = "."
	}

	var cmd []string
	switch formatter {
	case "ruff":
		cmd = []string{"ruff", "format"}
		if p.CheckOnly {
			cmd = append(cmd, "--check")
		}
		if p.Diff {
			cmd = append(cmd, "--diff")
		}
		cmd = append(cmd, target)
	case "black":
		cmd = []string{"black"}
		if p.CheckOnly {
			cmd = append(cmd, "--check")
		}
		if p.Diff {
			cmd = append(cmd, "--diff")
		}
		if p.LineLength > 0 {
			cmd = append(cmd, "--line-length", strconv.Itoa(p.LineLength))
		}
		cmd = append(cmd, target)
	default:
		return fmt.Sprintf("Error: Unknown formatter '%s'. Use 'ruff' or 'black'", formatter)
	}

	res := run(ctx, env, cmd, 60*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return fmt.Sprintf("Error: %s timed out", formatter)
	}
	if notFound(res) {
		return fmt.Sprintf("Error: %s not found. Install with: pip install %s", formatter, formatter)
	}

	out := []string{
		"Formatter: " + formatter,
		"Command: " + strings.Join(cmd, " "),
		"Target: " + target,
		"",
	}

	if res.ExitCode == 0 {
		if p.CheckOnly {
			out = append(out, "Code is already properly formatted")
		} else {
			out = append(out, "Code has been formatted successfully")
		}
		if res.Stdout != "" {
			out = append(out, "Details:", strings.TrimSpace(res.Stdout))
		}
	} else {
		if p.CheckOnly {
			out = append(out, "Code formatting issues detected:")
		} else {
			out = append(out, "Formatting completed with issues:")
		}
		if res.Stdout != "" {
			lines := splitLines(res.Stdout)
			note := fmt.Sprintf("\n... [Truncated: showing first 25 of %d lines]", len(lines))
			out = append(out, headTail(lines, 25, 5, note)...)
		}
	}

	if res.Stderr != "" {
		out = append(out, "\nErrors:", res.Stderr)
	}
	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}

type dependencyParams struct {
	Action   string   `json:"action"`
	Manager  string   `json:"manager"`
	Packages []string `json:"packages"`
	Dev      bool     `json:"dev"`
}

func dependency(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p dependencyParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error managing dependencies: " + err.Error()
	}

	manager := p.Manager
	if manager == "" {
		manager = "uv"
	}

	var cmd []string
	switch manager {
	case "uv":
		switch p.Action {
		case "install":
			cmd = append([]string{"uv", "add"}, p.Packages...)
		case "uninstall":
			cmd = append([]string{"uv", "remove"}, p.Packages...)
		case "list":
			cmd = []string{"uv", "pip", "list"}
		case "update":
			cmd = []string{"uv", "sync", "--upgrade"}
		case "lock":
			cmd = []string{"uv", "lock"}
		default:
			return fmt.Sprintf("Error: Unknown action '%s' for uv", p.Action)
		}
		if p.Dev && (p.Action == "install" || p.Action == "uninstall") {
			cmd = append(cmd, "--dev")
		}
	case "pip":
		switch p.Action {
		case "install":
			cmd = append([]string{"pip", "install"}, p.Packages...)
		case "uninstall":
			cmd = append([]string{"pip", "uninstall", "-y"}, p.Packages...)
		case "list":
			cmd = []string{"pip", "list"}
		case "update":
			cmd = append([]string{"pip", "install", "--upgrade"}, p.Packages...)
		default:
			return fmt.Sprintf("Error: Unknown action '%s' for pip", p.Action)
		}
	default:
		return fmt.Sprintf("Error: Unknown package manager '%s'. Use 'uv' or 'pip'", manager)
	}

	res := run(ctx, env, cmd, 300*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return fmt.Sprintf("Error: %s timed out after 300s", manager)
	}
	if notFound(res) {
		return fmt.Sprintf("Error: %s not found. Install uv with: curl -LsSf https://astral.sh/uv/install.sh | sh", manager)
	}

	title := strings.ToUpper(p.Action[:1]) + p.Action[1:]
	out := []string{
		"Package Manager: " + manager,
		"Action: " + p.Action,
		"Command: " + strings.Join(cmd, " "),
		"",
	}

	if res.ExitCode == 0 {
		out = append(out, title+" completed successfully")
		if res.Stdout != "" {
			lines := splitLines(res.Stdout)
			note := fmt.Sprintf("\n... [Truncated: showing first 40 of %d lines]", len(lines))
			out = append(out, headTail(lines, 40, 10, note)...)
		}
	} else {
		out = append(out, title+" failed")
		if res.Stdout != "" {
			out = append(out, "Output:", strings.TrimSpace(res.Stdout))
		}
		if res.Stderr != "" {
			out = append(out, "Errors:", strings.TrimSpace(res.Stderr))
		}
	}

	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}

type gitDiffParams struct {
	Cached   bool     `json:"cached"`
	NameOnly bool     `json:"name_only"`
	Stat     bool     `json:"stat"`
	NoColor  bool     `json:"no_color"`
	Paths    []string `json:"paths"`
}

func gitDiff(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p gitDiffParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error running git diff: " + err.Error()
	}

	cmd := []string{"git", "diff"}
	if p.Cached {
		cmd = append(cmd, "--cached")
	}
	if p.NameOnly {
		cmd = append(cmd, "--name-only")
	}
	if p.Stat {
		cmd = append(cmd, "--stat")
	}
	if p.NoColor {
		cmd = append(cmd, "--no-color")
	}
	cmd = append(cmd, p.Paths...)

	res := run(ctx, env, cmd, 30*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return "Error: git diff timed out"
	}
	if notFound(res) {
		return "Error: git not found. Please install git"
	}

	out := []string{
		"Command: " + strings.Join(cmd, " "),
		"Working directory: " + env.WorkingDir,
		"",
	}

	if res.ExitCode == 0 {
		if res.Stdout != "" {
			lines := splitLines(res.Stdout)
			note := fmt.Sprintf("\n... [Diff truncated: showing first 150 of %d lines]\nUse GitDiff with specific paths or --name-only for focused view", len(lines))
			out = append(out, headTail(lines, 150, 20, note)...)
		} else {
			out = append(out, "No differences found")
		}
	} else {
		out = append(out, "Git diff failed")
		if res.Stderr != "" {
			out = append(out, "Error:", strings.TrimSpace(res.Stderr))
		}
	}

	out = append(out, fmt.Sprintf("\nExit code: %d", res.ExitCode))
	return strings.Join(out, "\n")
}
