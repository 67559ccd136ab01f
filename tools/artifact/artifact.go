// Package artifact provides the ArtifactManagement tool, which lists,
// finds, organizes, and tidies the standard workspace output folders
// (scripts, data, visualization, plots).
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	tatty "github.com/nevindra/tatty"
)

// standardFolders maps an artifact type to the folders it lives in.
// "plots" is the legacy visualization folder and stays recognized.
var standardFolders = map[string][]string{
	"script":        {"scripts"},
	"data":          {"data"},
	"visualization": {"visualization", "plots"},
	"any":           {"scripts", "data", "visualization", "plots"},
}

// Register installs the artifact tool handler on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionArtifactManagement, manage)
}

type params struct {
	ActionType   string `json:"action_type"`
	Folder       string `json:"folder"`
	Pattern      string `json:"pattern"`
	ArtifactType string `json:"artifact_type"`
}

func manage(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p params
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error managing artifacts: " + err.Error()
	}

	out := []string{"Artifact Management: " + p.ActionType}
	if p.Folder != "" {
		out = append(out, "Target folder: "+p.Folder)
	}
	if p.Pattern != "" {
		out = append(out, "Search pattern: "+p.Pattern)
	}
	if p.ArtifactType != "" {
		out = append(out, "Artifact type: "+p.ArtifactType)
	}
	out = append(out, "Working directory: "+env.WorkingDir, "")

	switch strings.ToLower(p.ActionType) {
	case "list":
		out = append(out, list(p, env.WorkingDir)...)
	case "find":
		if p.Pattern == "" {
			return "Error: pattern parameter required for 'find' action"
		}
		out = append(out, find(p.Pattern, env.WorkingDir)...)
	case "organize":
		out = append(out, organize(env.WorkingDir)...)
	case "clean":
		out = append(out, clean(env.WorkingDir)...)
	default:
		return fmt.Sprintf("Error: Unknown action_type '%s'. Use 'list', 'find', 'organize', or 'clean'", p.ActionType)
	}

	return strings.Join(out, "\n")
}

func sizeLabel(n int64) string {
	if n < 10000 {
		return fmt.Sprintf("(%d bytes)", n)
	}
	return fmt.Sprintf("(%d KB)", n/1024)
}

func list(p params, workingDir string) []string {
	var folders []string
	switch {
	case p.Folder != "":
		folders = []string{p.Folder}
	case p.ArtifactType != "" && standardFolders[p.ArtifactType] != nil:
		folders = standardFolders[p.ArtifactType]
	default:
		folders = standardFolders["any"]
	}

	pattern := p.Pattern
	if pattern == "" {
		pattern = "*"
	}

	var out []string
	total := 0
	for _, folder := range folders {
		dir := filepath.Join(workingDir, folder)
		if _, err := os.Stat(dir); err != nil {
			out = append(out, folder+"/ (folder does not exist)", "")
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		var files []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			out = append(out, folder+"/ (empty)", "")
			continue
		}
		sort.Strings(files)
		out = append(out, fmt.Sprintf("%s/ (%d files):", folder, len(files)))
		for _, f := range files {
			rel, _ := filepath.Rel(workingDir, f)
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			out = append(out, fmt.Sprintf("  - %s %s", rel, sizeLabel(info.Size())))
		}
		total += len(files)
		out = append(out, "")
	}

	out = append(out, fmt.Sprintf("Summary: %d total artifacts found", total))
	return out
}

func find(pattern, workingDir string) []string {
	var matches []string
	for _, folder := range standardFolders["any"] {
		dir := filepath.Join(workingDir, folder)
		filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if ok, _ := path.Match(pattern, d.Name()); ok {
				matches = append(matches, p)
			}
			return nil
		})
	}

	if len(matches) == 0 {
		return []string{
			fmt.Sprintf("No matches found for pattern '%s'", pattern),
			"",
			"Tip: Try broader patterns like '*plot*', '*.py', '*.csv'",
		}
	}

	sort.Strings(matches)
	out := []string{fmt.Sprintf("Found %d matches for '%s':", len(matches), pattern), ""}

	byFolder := map[string][]string{}
	var order []string
	for _, m := range matches {
		rel, _ := filepath.Rel(workingDir, m)
		folder := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
		if _, seen := byFolder[folder]; !seen {
			order = append(order, folder)
		}
		byFolder[folder] = append(byFolder[folder], rel)
	}

	for _, folder := range order {
		out = append(out, folder+"/:")
		for _, rel := range byFolder[folder] {
			info, err := os.Stat(filepath.Join(workingDir, rel))
			if err != nil {
				continue
			}
			out = append(out, fmt.Sprintf("  - %s %s", rel, sizeLabel(info.Size())))
		}
		out = append(out, "")
	}
	return out
}

func organize(workingDir string) []string {
	var out []string
	var created []string
	for _, folder := range standardFolders["any"] {
		dir := filepath.Join(workingDir, folder)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err == nil {
				created = append(created, folder)
			}
		}
	}
	if len(created) > 0 {
		out = append(out, "Created missing folders: "+strings.Join(created, ", "), "")
	}

	entries, _ := os.ReadDir(workingDir)
	var suggestions []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case hasSuffix(name, ".py", ".ipynb"):
			if !strings.HasPrefix(name, "main.") {
				suggestions = append(suggestions, "  mv "+name+" scripts/")
			}
		case hasSuffix(name, ".csv", ".json", ".txt", ".xlsx"):
			suggestions = append(suggestions, "  mv "+name+" data/")
		case hasSuffix(name, ".png", ".jpg", ".svg", ".pdf", ".html"):
			suggestions = append(suggestions, "  mv "+name+" visualization/")
		}
	}
	if len(suggestions) > 0 {
		out = append(out, "Organization suggestions for root directory files:")
		shown := suggestions
		if len(shown) > 10 {
			shown = shown[:10]
		}
		out = append(out, shown...)
		if len(suggestions) > 10 {
			out = append(out, fmt.Sprintf("  ... and %d more files", len(suggestions)-10))
		}
		out = append(out, "")
	}

	out = append(out,
		"Standard folder structure:",
		"  scripts/       - Python scripts, code generators, analysis tools",
		"  data/          - CSV files, datasets, JSON files, text data",
		"  visualization/ - Plots, charts, images, visual outputs",
		"  plots/         - Legacy plot folder",
	)
	return out
}

func hasSuffix(name string, exts ...string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func clean(workingDir string) []string {
	var out []string
	var empty []string
	for _, folder := range standardFolders["any"] {
		dir := filepath.Join(workingDir, folder)
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			empty = append(empty, folder)
		}
	}
	if len(empty) > 0 {
		out = append(out,
			"Empty folders found: "+strings.Join(empty, ", "),
			"These folders are kept for future artifact organization",
			"",
		)
	}

	out = append(out, "Checking for potential duplicates...")

	byName := map[string][]string{}
	var order []string
	for _, folder := range standardFolders["any"] {
		dir := filepath.Join(workingDir, folder)
		filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if _, seen := byName[d.Name()]; !seen {
				order = append(order, d.Name())
			}
			byName[d.Name()] = append(byName[d.Name()], p)
			return nil
		})
	}

	var dupes []string
	for _, name := range order {
		if len(byName[name]) > 1 {
			dupes = append(dupes, name)
		}
	}

	if len(dupes) == 0 {
		out = append(out, "No duplicate filenames found")
		return out
	}

	out = append(out, fmt.Sprintf("Found %d potential duplicate filenames:", len(dupes)))
	shown := dupes
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, name := range shown {
		out = append(out, "  "+name+":")
		for _, p := range byName[name] {
			rel, _ := filepath.Rel(workingDir, p)
			out = append(out, "    - "+rel)
		}
	}
	if len(dupes) > 5 {
		out = append(out, fmt.Sprintf("  ... and %d more", len(dupes)-5))
	}
	return out
}
