package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func testEnv() tatty.Env {
	return tatty.Env{WorkingDir: ".", Todos: &tatty.TodoList{}, Interrupt: &tatty.Interrupt{}}
}

func inv(action tatty.Action, params map[string]any) tatty.Invocation {
	args, _ := json.Marshal(params)
	return tatty.Invocation{Action: action, Args: args}
}

func TestFetchExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Doc</title></head><body><article><p>Useful paragraph one.</p><p>Useful paragraph two.</p></article></body></html>`))
	}))
	defer srv.Close()

	tools := New()
	got := tools.fetch(context.Background(), inv(tatty.ActionWebFetch, map[string]any{
		"url": srv.URL, "prompt": "summarize this",
	}), testEnv())

	if !strings.HasPrefix(got, "Content from "+srv.URL+":") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "Useful paragraph one.") {
		t.Errorf("missing page text: %q", got)
	}
	if !strings.Contains(got, "User prompt: summarize this") {
		t.Errorf("missing prompt echo: %q", got)
	}
}

func TestFetchTruncatesLongPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 5000) + "</p></body></html>"))
	}))
	defer srv.Close()

	tools := New()
	got := tools.fetch(context.Background(), inv(tatty.ActionWebFetch, map[string]any{"url": srv.URL}), testEnv())
	if !strings.Contains(got, "... [truncated]") {
		t.Errorf("long page not truncated")
	}
	if !strings.Contains(got, "call the WebFetch tool again") {
		t.Errorf("missing continuation hint: %q", got)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tools := New()
	got := tools.fetch(context.Background(), inv(tatty.ActionWebFetch, map[string]any{"url": srv.URL}), testEnv())
	if !strings.HasPrefix(got, "Error fetching web content:") || !strings.Contains(got, "HTTP 404") {
		t.Errorf("got %q", got)
	}
}

func TestSearchWithoutAPIKey(t *testing.T) {
	tools := New()
	got := tools.search(context.Background(), inv(tatty.ActionWebSearch, map[string]any{"query": "anything"}), testEnv())
	if got != "Error: search API key not configured" {
		t.Errorf("got %q", got)
	}
}

func TestSearchFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "First Hit", "url": "https://example.com/a", "description": "alpha snippet"},
					{"title": "Second Hit", "url": "https://example.com/b", "description": "beta snippet"},
				},
			},
		})
	}))
	defer srv.Close()

	tools := New(WithSearchAPIKey("test-key"))
	results, err := tools.braveSearch(withBase(context.Background(), t, tools, srv), "golang", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 || results[0].Title != "First Hit" || results[1].URL != "https://example.com/b" {
		t.Errorf("unexpected results: %+v", results)
	}
}

// withBase rewires the tool's client so Brave API requests land on the
// test server regardless of the hardcoded host.
func withBase(ctx context.Context, t *testing.T, tools *Tools, srv *httptest.Server) context.Context {
	t.Helper()
	tools.client = &http.Client{Transport: rewriteTransport{base: srv.URL}}
	return ctx
}

type rewriteTransport struct {
	base string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target := rt.base + "?" + req.URL.RawQuery
	out, err := http.NewRequestWithContext(req.Context(), req.Method, target, req.Body)
	if err != nil {
		return nil, err
	}
	out.Header = req.Header
	return http.DefaultTransport.RoundTrip(out)
}

func TestSearchEmptyQuery(t *testing.T) {
	tools := New(WithSearchAPIKey("k"))
	got := tools.search(context.Background(), inv(tatty.ActionWebSearch, map[string]any{}), testEnv())
	if got != "Error performing web search: query is required" {
		t.Errorf("got %q", got)
	}
}
