// Package web provides the network-facing tools: WebFetch downloads a
// page and extracts its readable text, WebSearch queries the Brave
// search API.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	tatty "github.com/nevindra/tatty"
)

const (
	fetchBodyLimit = 1 << 20 // bytes read from a page
	fetchTextLimit = 10000   // characters surfaced to the conversation
	searchCount    = 5
	snippetLimit   = 500
)

// Tools holds the HTTP client and credentials the web handlers share.
type Tools struct {
	client *http.Client
	apiKey string
}

// Option configures Tools.
type Option func(*Tools)

// WithHTTPClient replaces the default 10-second-timeout client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tools) { t.client = c }
}

// WithSearchAPIKey sets the Brave subscription token. Without it,
// WebSearch reports a configuration error instead of calling out.
func WithSearchAPIKey(key string) Option {
	return func(t *Tools) { t.apiKey = key }
}

// New creates the web tool set.
func New(opts ...Option) *Tools {
	t := &Tools{
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register installs the web tool handlers on a registry.
func (t *Tools) Register(reg *tatty.Registry) {
	reg.Register(tatty.ActionWebFetch, t.fetch)
	reg.Register(tatty.ActionWebSearch, t.search)
}

type fetchParams struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

func (t *Tools) fetch(ctx context.Context, inv tatty.Invocation, _ tatty.Env) string {
	var p fetchParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error fetching web content: " + err.Error()
	}
	if p.URL == "" {
		return "Error fetching web content: url is required"
	}

	text, err := t.extract(ctx, p.URL)
	if err != nil {
		return "Error fetching web content: " + err.Error()
	}

	truncMsg := ""
	if len(text) > fetchTextLimit {
		text = text[:fetchTextLimit] + "\n... [truncated]"
		truncMsg = "if you need more information, call the WebFetch tool again to get the rest of the content with a file path"
	}

	return strings.TrimSpace(fmt.Sprintf("Content from %s:\n\n%s\n\nUser prompt: %s\n\n%s", p.URL, text, p.Prompt, truncMsg))
}

// extract downloads a page and pulls out readable text, falling back to
// whitespace-collapsed raw body when readability finds nothing.
func (t *Tools) extract(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TattyBot/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return "", err
	}

	parsed, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err == nil && article.TextContent != "" {
		return collapse(article.TextContent), nil
	}
	return collapse(string(body)), nil
}

// collapse trims each line and drops blank ones.
func collapse(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

type searchParams struct {
	Query string `json:"query"`
}

func (t *Tools) search(ctx context.Context, inv tatty.Invocation, _ tatty.Env) string {
	var p searchParams
	if err := json.Unmarshal(inv.Args, &p); err != nil {
		return "Error performing web search: " + err.Error()
	}
	if p.Query == "" {
		return "Error performing web search: query is required"
	}
	if t.apiKey == "" {
		return "Error: search API key not configured"
	}

	results, err := t.braveSearch(ctx, p.Query, searchCount)
	if err != nil {
		return "Error performing search: " + err.Error()
	}
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: '%s'", p.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for '%s':\n\n", p.Query)
	for i, r := range results {
		body := r.Snippet
		if len(body) > snippetLimit {
			body = body[:snippetLimit] + "..."
		}
		fmt.Fprintf(&b, "%d. **%s**\n   URL: %s\n   Content: %s\n\n", i+1, r.Title, r.URL, body)
	}
	return strings.TrimRight(b.String(), "\n")
}

type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

func (t *Tools) braveSearch(ctx context.Context, query string, count int) ([]searchResult, error) {
	u := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d",
		url.QueryEscape(query), count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search API %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var results []searchResult
	for _, r := range data.Web.Results {
		results = append(results, searchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}
