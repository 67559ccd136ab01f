// Package file provides the file manipulation tools: Read with line
// numbering and windowing, Edit and MultiEdit string replacement, and
// Write. Read extracts text from PDF files via ledongthuc/pdf so the
// agent can consume reports and papers without a converter step.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	tatty "github.com/nevindra/tatty"
)

const (
	// maxReadLines caps a single Read window.
	maxReadLines = 5000
	// maxLineChars truncates pathological single lines.
	maxLineChars = 20000
)

// Register installs the file tool handlers on a registry.
func Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionRead, read)
	reg.Register(tatty.ActionEdit, edit)
	reg.Register(tatty.ActionMultiEdit, multiEdit)
	reg.Register(tatty.ActionWrite, write)
}

// resolve anchors relative paths at the working directory. Absolute
// paths pass through untouched.
func resolve(p, workingDir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workingDir, p)
}

type readParams struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

func read(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p readParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error reading file: " + err.Error()
	}
	if p.FilePath == "" {
		return "Error reading file: file_path is required"
	}

	path := resolve(p.FilePath, env.WorkingDir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "File not found: " + p.FilePath
		}
		return "Error reading file: " + err.Error()
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path, p.FilePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "Error reading file: " + err.Error()
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline produces a phantom empty element.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	total := len(lines)

	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if p.Limit > 0 {
		end = start + p.Limit
	}
	if end-start > maxReadLines {
		end = start + maxReadLines
	}
	if end > total {
		end = total
	}

	var out []string
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineChars {
			line = line[:maxLineChars] + "... [line truncated at 20k characters]"
		}
		out = append(out, fmt.Sprintf("%6d|%s", i+1, strings.TrimRight(line, " \t\r")))
	}

	if end < total {
		remaining := total - end
		next := remaining
		if next > maxReadLines {
			next = maxReadLines
		}
		notice := fmt.Sprintf("\n\n... [Output truncated: showing lines %d-%d of %d total lines (%d lines remaining)]\n", start+1, end, total, remaining)
		notice += fmt.Sprintf("To read more, use the Read tool with: offset=%d, limit=%d", end, next)
		out = append(out, notice)
	}

	if len(out) == 0 {
		return "Empty file"
	}
	return strings.Join(out, "\n")
}

func readPDF(path, displayPath string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "Error reading file: " + err.Error()
	}
	defer f.Close()

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	if text.Len() == 0 {
		return "Empty file"
	}
	return fmt.Sprintf("PDF content from %s:\n\n%s", displayPath, text.String())
}

type editParams struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

func edit(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p editParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error editing file: " + err.Error()
	}
	if p.FilePath == "" {
		return "Error editing file: file_path is required"
	}

	path := resolve(p.FilePath, env.WorkingDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "File not found: " + p.FilePath
		}
		return "Error editing file: " + err.Error()
	}
	content := string(data)

	occurrences := strings.Count(content, p.OldString)
	var newContent string
	var count int
	if p.ReplaceAll {
		newContent = strings.ReplaceAll(content, p.OldString, p.NewString)
		count = occurrences
	} else {
		if occurrences > 1 {
			return fmt.Sprintf("Error: old_string is not unique in file (found %d occurrences)", occurrences)
		}
		newContent = strings.Replace(content, p.OldString, p.NewString, 1)
		if occurrences > 0 {
			count = 1
		}
	}

	if count == 0 {
		return "Error: old_string not found in file"
	}

	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return "Error editing file: " + err.Error()
	}
	return fmt.Sprintf("Successfully edited %s (%d replacement(s))", p.FilePath, count)
}

type multiEditParams struct {
	FilePath string     `json:"file_path"`
	Edits    []editSpec `json:"edits"`
}

type editSpec struct {
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

func multiEdit(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p multiEditParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error editing file: " + err.Error()
	}
	if p.FilePath == "" {
		return "Error editing file: file_path is required"
	}

	path := resolve(p.FilePath, env.WorkingDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "File not found: " + p.FilePath
		}
		return "Error editing file: " + err.Error()
	}
	content := string(data)

	// Edits apply in order, each seeing the previous one's output. The
	// first failure abandons the whole batch without touching the file.
	for i, e := range p.Edits {
		if e.ReplaceAll {
			content = strings.ReplaceAll(content, e.OldString, e.NewString)
			continue
		}
		n := strings.Count(content, e.OldString)
		if n > 1 {
			return fmt.Sprintf("Error in edit %d: old_string is not unique (found %d occurrences)", i+1, n)
		}
		if n == 0 {
			return fmt.Sprintf("Error in edit %d: old_string not found", i+1)
		}
		content = strings.Replace(content, e.OldString, e.NewString, 1)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "Error editing file: " + err.Error()
	}
	return fmt.Sprintf("Successfully applied %d edits to %s", len(p.Edits), p.FilePath)
}

type writeParams struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func write(_ context.Context, inv tatty.Invocation, env tatty.Env) string {
	var p writeParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error writing file: " + err.Error()
	}
	if p.FilePath == "" {
		return "Error writing file: file_path is required"
	}

	path := resolve(p.FilePath, env.WorkingDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "Error writing file: " + err.Error()
	}
	if err := os.WriteFile(path, []byte(p.Content), 0o644); err != nil {
		return "Error writing file: " + err.Error()
	}
	return "Successfully wrote " + p.FilePath
}
