package notebook

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownHTML converts a final reply's Markdown to HTML for notebook
// display. GFM tables, strikethrough, and task lists are enabled because
// replies frequently use them.
func markdownHTML(md string) string {
	gm := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	var buf bytes.Buffer
	if err := gm.Convert([]byte(md), &buf); err != nil {
		// Fallback: escape and return as preformatted text.
		return "<pre>" + htmlEscape(md) + "</pre>"
	}
	return strings.TrimSpace(buf.String())
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
