package dev

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tatty "github.com/nevindra/tatty"
)

// nonPythonIndicators are names that signal a system tool rather than a
// PyPI package.
var nonPythonIndicators = []string{
	"brew", "homebrew", "apt", "yum", "pacman",
	"node", "npm", "yarn",
	"docker", "kubernetes", "helm",
	"git", "svn", "mercurial",
	"redis", "mongodb", "postgresql",
	"nginx", "apache", "mysql",
	"terraform", "ansible",
	"ruby", "go", "rust", "java",
}

// pythonAlternatives suggests the PyPI client for a rejected system tool.
var pythonAlternatives = map[string]string{
	"git":        "GitPython",
	"redis":      "redis-py",
	"mongodb":    "pymongo",
	"postgresql": "psycopg2-binary",
	"mysql":      "PyMySQL",
	"sqlite":     "sqlite3 (built-in)",
	"docker":     "docker-py",
	"kubernetes": "kubernetes-client",
	"node":       "pynode or find Python equivalent",
	"npm":        "find Python equivalent",
}

// wrapperPatterns are package names that contain a blocked indicator but
// are legitimate Python clients.
var wrapperPatterns = map[string]bool{
	"redis-py": true, "redis_py": true,
	"docker-py": true, "docker_py": true,
	"postgresql-py": true, "mysql-py": true,
}

func isNonPython(pkg string) bool {
	lower := strings.ToLower(pkg)
	for _, ind := range nonPythonIndicators {
		if lower == ind {
			return true
		}
		if (strings.HasPrefix(lower, ind+"-") || strings.HasPrefix(lower, ind+"_")) && !wrapperPatterns[lower] {
			return true
		}
	}
	return false
}

type installParams struct {
	Packages      []string `json:"packages"`
	Dev           bool     `json:"dev"`
	Upgrade       bool     `json:"upgrade"`
	UserConfirmed bool     `json:"user_confirmed"`
}

func installPackages(ctx context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p installParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error installing packages: " + err.Error()
	}

	if !p.UserConfirmed {
		return "Error: Installation requires user confirmation. Set user_confirmed=true to proceed."
	}
	if len(p.Packages) == 0 {
		return "Error: No packages specified for installation"
	}

	var invalid []string
	for _, pkg := range p.Packages {
		if isNonPython(pkg) {
			invalid = append(invalid, pkg)
		}
	}
	if len(invalid) > 0 {
		out := []string{
			"Error: Non-Python packages detected!",
			"This tool only installs Python packages from PyPI.",
			"",
			"Invalid packages:",
		}
		for _, pkg := range invalid {
			out = append(out, "  - "+pkg)
			if alt, ok := pythonAlternatives[strings.ToLower(pkg)]; ok {
				out = append(out, "    Try instead: "+alt)
			}
		}
		out = append(out,
			"",
			"For system dependencies:",
			"1. Use WebSearch to find Python equivalents",
			"2. Look for Python wrappers or clients",
			"3. Consider pure-Python implementations",
		)
		return strings.Join(out, "\n")
	}

	yn := func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	}
	out := []string{
		"Installing packages...",
		"Packages: " + strings.Join(p.Packages, ", "),
		"Development: " + yn(p.Dev),
		"Upgrade: " + yn(p.Upgrade),
		"Working directory: " + env.WorkingDir,
		"",
	}

	// uv is preferred; pip is the fallback when uv is absent.
	var cmd []string
	probe := run(ctx, env, []string{"uv", "--version"}, 5*time.Second)
	switch {
	case probe.ExitCode == 0:
		out = append(out, "Using uv (preferred package manager)")
		cmd = []string{"uv", "add"}
		if p.Dev {
			cmd = append(cmd, "--dev")
		}
		if p.Upgrade {
			cmd = append(cmd, "--upgrade")
		}
		cmd = append(cmd, p.Packages...)
	default:
		probe = run(ctx, env, []string{"pip", "--version"}, 5*time.Second)
		if probe.ExitCode != 0 {
			return "Error: Neither uv nor pip are available. Please install a package manager."
		}
		out = append(out, "Using pip (fallback package manager)")
		cmd = []string{"pip", "install"}
		if p.Upgrade {
			cmd = append(cmd, "--upgrade")
		}
		cmd = append(cmd, p.Packages...)
	}

	out = append(out, "Command: "+strings.Join(cmd, " "), "")

	res := run(ctx, env, cmd, 300*time.Second)
	if res.Interrupted {
		return tatty.InterruptedMessage
	}
	if res.TimedOut {
		return "Error: Package installation timed out (5 minute limit)"
	}

	if res.ExitCode == 0 {
		out = append(out, "Installation completed successfully!")
		if strings.TrimSpace(res.Stdout) != "" {
			lines := splitLines(res.Stdout)
			if len(lines) > 50 {
				out = append(out, "\nInstallation output (truncated):")
				out = append(out, lines[len(lines)-20:]...)
				out = append(out, fmt.Sprintf("... (showing last 20 of %d lines)", len(lines)))
			} else {
				out = append(out, "\nInstallation output:")
				out = append(out, lines...)
			}
		}
	} else {
		out = append(out, "Installation failed!")
		if res.Stderr != "" {
			out = append(out, "\nError details:")
			errLines := splitLines(res.Stderr)
			if len(errLines) > 30 {
				out = append(out, errLines[:20]...)
				out = append(out, fmt.Sprintf("... (showing first 20 of %d error lines)", len(errLines)))
			} else {
				out = append(out, errLines...)
			}
		}
		out = append(out,
			"\nTroubleshooting suggestions:",
			"   - Check package names are correct",
			"   - Try: uv sync to refresh dependencies",
			"   - Try: uv lock --upgrade to update lockfile",
		)
	}

	return strings.Join(out, "\n")
}
