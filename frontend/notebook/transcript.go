// Package notebook renders run transcripts as self-contained HTML
// fragments for embedding in notebook-style front-ends. A Recorder
// subscribes to run events through tatty.Callbacks and accumulates a
// transcript; Render produces the final document.
package notebook

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	tatty "github.com/nevindra/tatty"
)

const paramPreviewLimit = 100

// Recorder captures run events into a renderable transcript. Safe for the
// runner to drive from its own goroutine while Render is called elsewhere.
type Recorder struct {
	mu      sync.Mutex
	task    string
	entries []entry
	reply   string
}

type entryKind int

const (
	kindIteration entryKind = iota
	kindTool
	kindSubAgent
)

type entry struct {
	kind entryKind

	iteration int
	depth     int

	tool   string
	params string
	result string

	subDescription string
}

// NewRecorder creates a Recorder for one run with the given task text.
func NewRecorder(task string) *Recorder {
	return &Recorder{task: task}
}

// Callbacks returns the hook set to install on the runner. Chain with
// other callbacks through observer.Instrument or manual composition.
func (r *Recorder) Callbacks() tatty.Callbacks {
	return tatty.Callbacks{
		OnIteration: func(iteration, depth int) {
			r.add(entry{kind: kindIteration, iteration: iteration, depth: depth})
		},
		OnToolStart: func(action tatty.Action, args json.RawMessage, index, total, depth int) {
			r.add(entry{
				kind:   kindTool,
				tool:   string(action),
				params: paramPreview(args),
				depth:  depth,
			})
		},
		OnToolResult: func(result string, depth int) {
			r.setLastResult(result, depth)
		},
		OnSubAgentStart: func(description, prompt string, depth int) {
			r.add(entry{kind: kindSubAgent, subDescription: description, depth: depth})
		},
		OnAgentReply: func(text string) {
			r.mu.Lock()
			r.reply = text
			r.mu.Unlock()
		},
	}
}

func (r *Recorder) add(e entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// setLastResult attaches a result to the most recent tool entry at the
// same depth. Tools run serially per depth, so the match is unambiguous.
func (r *Recorder) setLastResult(result string, depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := &r.entries[i]
		if e.kind == kindTool && e.depth == depth && e.result == "" {
			e.result = result
			return
		}
	}
}

// Render produces the transcript as an HTML fragment: the task, every
// iteration's tool executions with collapsible results, and the final
// reply rendered from Markdown.
func (r *Recorder) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<div class="agent-transcript">` + "\n")
	b.WriteString(transcriptCSS)

	b.WriteString(`<div class="agent-task">` + htmlEscape(r.task) + "</div>\n")

	for _, e := range r.entries {
		switch e.kind {
		case kindIteration:
			if e.depth == 0 {
				fmt.Fprintf(&b, `<div class="agent-iteration">Iteration %d</div>`+"\n", e.iteration)
			}
		case kindSubAgent:
			fmt.Fprintf(&b, `<div class="agent-subagent">Sub-agent (depth %d): %s</div>`+"\n",
				e.depth, htmlEscape(e.subDescription))
		case kindTool:
			b.WriteString(`<div class="agent-tool">` + "\n")
			fmt.Fprintf(&b, `<span class="agent-tool-name">%s</span>`+"\n", htmlEscape(e.tool))
			if e.params != "" {
				fmt.Fprintf(&b, `<span class="agent-tool-params">%s</span>`+"\n", htmlEscape(e.params))
			}
			if e.result != "" {
				b.WriteString("<details><summary>Result</summary><pre>")
				b.WriteString(htmlEscape(e.result))
				b.WriteString("</pre></details>\n")
			}
			b.WriteString("</div>\n")
		}
	}

	if r.reply != "" {
		b.WriteString(`<div class="agent-reply">` + "\n")
		b.WriteString(markdownHTML(r.reply))
		b.WriteString("\n</div>\n")
	}

	b.WriteString("</div>")
	return b.String()
}

// Reply returns the final reply text, empty until the run completes.
func (r *Recorder) Reply() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reply
}

// paramPreview flattens a raw parameter document into a short k=v line.
func paramPreview(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal(args, &params); err != nil {
		return truncate(string(args), paramPreviewLimit)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := string(params[k])
		var s string
		if err := json.Unmarshal(params[k], &s); err == nil {
			v = s
		}
		parts = append(parts, k+"="+v)
	}
	return truncate(strings.Join(parts, ", "), paramPreviewLimit)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

const transcriptCSS = `<style>
.agent-transcript { font-family: Monaco, Menlo, monospace; border: 1px solid #e1e4e8; border-radius: 6px; padding: 12px; }
.agent-task { background: #e3f2fd; border-left: 4px solid #2196f3; padding: 8px 12px; margin-bottom: 8px; }
.agent-iteration { color: #6c757d; font-size: 12px; margin-top: 8px; }
.agent-subagent { color: #9c27b0; font-size: 12px; margin: 4px 0; }
.agent-tool { border-left: 4px solid #28a745; padding-left: 12px; margin: 8px 0; }
.agent-tool-name { font-weight: bold; color: #28a745; font-size: 13px; }
.agent-tool-params { color: #6c757d; font-size: 12px; margin-left: 8px; }
.agent-tool pre { background: white; border: 1px solid #e9ecef; border-radius: 4px; padding: 8px; font-size: 12px; max-height: 300px; overflow-y: auto; }
.agent-reply { background: #f3e5f5; border-left: 4px solid #9c27b0; padding: 8px 12px; margin-top: 8px; }
</style>
`
