// Package notebook provides the Jupyter notebook tools: NotebookRead
// summarizes cells, NotebookEdit replaces a cell's source in place.
package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tatty "github.com/nevindra/tatty"
)

// Register installs the notebook tool handlers on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionNotebookRead, read)
	reg.Register(tatty.ActionNotebookEdit, edit)
}

// cell is the subset of the nbformat cell schema the tools touch.
// Unknown fields survive a read-edit-write cycle via Extra.
type cell struct {
	CellType string                     `json:"cell_type"`
	Source   json.RawMessage            `json:"source"`
	Extra    map[string]json.RawMessage `json:"-"`
}

func (c *cell) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cell_type"]; ok {
		if err := json.Unmarshal(v, &c.CellType); err != nil {
			return err
		}
		delete(raw, "cell_type")
	}
	if v, ok := raw["source"]; ok {
		c.Source = v
		delete(raw, "source")
	}
	c.Extra = raw
	return nil
}

func (c cell) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+2)
	for k, v := range c.Extra {
		out[k] = v
	}
	ct, err := json.Marshal(c.CellType)
	if err != nil {
		return nil, err
	}
	out["cell_type"] = ct
	if c.Source != nil {
		out["source"] = c.Source
	}
	return json.Marshal(out)
}

// notebook mirrors the top-level nbformat document the same way.
type document struct {
	Cells []cell                     `json:"cells"`
	Extra map[string]json.RawMessage `json:"-"`
}

func (d *document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cells"]; ok {
		if err := json.Unmarshal(v, &d.Cells); err != nil {
			return err
		}
		delete(raw, "cells")
	} else {
		return errNoCells
	}
	d.Extra = raw
	return nil
}

func (d document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+1)
	for k, v := range d.Extra {
		out[k] = v
	}
	cells, err := json.Marshal(d.Cells)
	if err != nil {
		return nil, err
	}
	out["cells"] = cells
	return json.Marshal(out)
}

var errNoCells = fmt.Errorf("missing cells array")

func resolve(p, workingDir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workingDir, p)
}

func load(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// sourceText joins an nbformat source, which is either a string or a
// list of line strings.
func sourceText(src json.RawMessage) string {
	if len(src) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(src, &s); err == nil {
		return s
	}
	var lines []string
	if err := json.Unmarshal(src, &lines); err == nil {
		return strings.Join(lines, "")
	}
	return ""
}

type readParams struct {
	NotebookPath string `json:"notebook_path"`
}

func read(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p readParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error reading notebook: " + err.Error()
	}
	if p.NotebookPath == "" {
		return "Error reading notebook: notebook_path is required"
	}

	path := resolve(p.NotebookPath, env.WorkingDir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "Notebook not found: " + p.NotebookPath
		}
		return "Error reading notebook: " + err.Error()
	}

	doc, err := load(path)
	if err != nil {
		if err == errNoCells {
			return "Invalid notebook format: " + p.NotebookPath
		}
		return "Error reading notebook: " + err.Error()
	}

	info := make([]string, 0, len(doc.Cells))
	for i, c := range doc.Cells {
		cellType := c.CellType
		if cellType == "" {
			cellType = "unknown"
		}
		src := sourceText(c.Source)
		if len(src) > 500 {
			src = src[:500] + "... [truncated]"
		}
		info = append(info, fmt.Sprintf("Cell %d (%s):\n%s", i, cellType, src))
	}

	return fmt.Sprintf("Notebook: %s\n\n%s", p.NotebookPath, strings.Join(info, "\n\n"))
}

type editParams struct {
	NotebookPath string `json:"notebook_path"`
	CellNumber   int    `json:"cell_number"`
	NewSource    string `json:"new_source"`
	CellType     string `json:"cell_type"`
}

func edit(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p editParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error editing notebook: " + err.Error()
	}
	if p.NotebookPath == "" {
		return "Error editing notebook: notebook_path is required"
	}

	path := resolve(p.NotebookPath, env.WorkingDir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "Notebook not found: " + p.NotebookPath
		}
		return "Error editing notebook: " + err.Error()
	}

	doc, err := load(path)
	if err != nil {
		if err == errNoCells {
			return "Invalid notebook format: " + p.NotebookPath
		}
		return "Error editing notebook: " + err.Error()
	}

	if p.CellNumber < 0 || p.CellNumber >= len(doc.Cells) {
		return fmt.Sprintf("Cell %d does not exist (notebook has %d cells)", p.CellNumber, len(doc.Cells))
	}

	src, err := json.Marshal(splitSource(p.NewSource))
	if err != nil {
		return "Error editing notebook: " + err.Error()
	}
	doc.Cells[p.CellNumber].Source = src
	if p.CellType != "" {
		doc.Cells[p.CellNumber].CellType = p.CellType
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "Error editing notebook: " + err.Error()
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "Error editing notebook: " + err.Error()
	}
	return fmt.Sprintf("Successfully updated cell %d in %s", p.CellNumber, p.NotebookPath)
}

// splitSource converts plain text to the nbformat line-list form, each
// line keeping its trailing newline except the last.
func splitSource(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line+"\n")
	}
	if n := len(out); n > 0 && out[n-1] == "\n" {
		out = out[:n-1]
	}
	return out
}
