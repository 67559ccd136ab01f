package notebook

import (
	"encoding/json"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func TestMarkdownHTMLBold(t *testing.T) {
	got := markdownHTML("This is **bold** text")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("got: %s", got)
	}
}

func TestMarkdownHTMLCodeBlock(t *testing.T) {
	got := markdownHTML("```python\nprint('hi')\n```")
	if !strings.Contains(got, "<pre><code") || !strings.Contains(got, "print(&#39;hi&#39;)") {
		t.Errorf("got: %s", got)
	}
}

func TestMarkdownHTMLTable(t *testing.T) {
	got := markdownHTML("| a | b |\n|---|---|\n| 1 | 2 |")
	if !strings.Contains(got, "<table>") {
		t.Errorf("got: %s", got)
	}
}

func TestRecorderRendersTranscript(t *testing.T) {
	rec := NewRecorder("analyze <data.csv>")
	cb := rec.Callbacks()

	cb.OnIteration(1, 0)
	cb.OnToolStart(tatty.ActionRead, json.RawMessage(`{"file_path":"data.csv"}`), 1, 1, 0)
	cb.OnToolResult("     1|a,b,c", 0)
	cb.OnIteration(2, 0)
	cb.OnAgentReply("The file has **3** columns.")

	html := rec.Render()

	for _, want := range []string{
		"analyze &lt;data.csv&gt;",
		"Iteration 1",
		"Iteration 2",
		"Read",
		"file_path=data.csv",
		"<details><summary>Result</summary>",
		"1|a,b,c",
		"<strong>3</strong>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered transcript missing %q", want)
		}
	}
}

func TestRecorderSubAgentEntries(t *testing.T) {
	rec := NewRecorder("delegate")
	cb := rec.Callbacks()

	cb.OnSubAgentStart("explore files", "list everything", 1)
	// Sub-agent iterations are not shown as top-level banners.
	cb.OnIteration(1, 1)
	cb.OnToolStart(tatty.ActionLS, nil, 1, 1, 1)
	cb.OnToolResult("DIR  scripts", 1)

	html := rec.Render()
	if !strings.Contains(html, "Sub-agent (depth 1): explore files") {
		t.Errorf("missing sub-agent header:\n%s", html)
	}
	if strings.Contains(html, "Iteration 1</div>") && strings.Contains(html, `class="agent-iteration"`) {
		t.Errorf("sub-agent iteration rendered as top-level banner:\n%s", html)
	}
	if !strings.Contains(html, "DIR  scripts") {
		t.Errorf("missing nested tool result:\n%s", html)
	}
}

func TestRecorderResultPairsByDepth(t *testing.T) {
	rec := NewRecorder("mix")
	cb := rec.Callbacks()

	cb.OnToolStart(tatty.ActionBash, nil, 1, 1, 0)
	cb.OnToolStart(tatty.ActionGrep, nil, 1, 1, 1)
	cb.OnToolResult("child result", 1)
	cb.OnToolResult("parent result", 0)

	html := rec.Render()
	grepIdx := strings.Index(html, "Grep")
	childIdx := strings.Index(html, "child result")
	bashIdx := strings.Index(html, "Bash")
	if grepIdx < 0 || childIdx < 0 || bashIdx < 0 {
		t.Fatalf("entries missing:\n%s", html)
	}
	if childIdx < grepIdx {
		t.Error("child result attached before its tool entry")
	}
}

func TestParamPreviewTruncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := paramPreview(json.RawMessage(`{"content":"` + long + `"}`))
	if len(got) > paramPreviewLimit {
		t.Errorf("preview length = %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview = %q", got)
	}
}
