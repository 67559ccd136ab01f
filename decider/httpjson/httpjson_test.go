package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tatty "github.com/nevindra/tatty"
)

func TestDecideFinalReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.WorkingDir != "/work" {
			t.Errorf("working_dir = %q", req.WorkingDir)
		}
		if len(req.Conversation) != 1 || req.Conversation[0].Content != "hi" {
			t.Errorf("conversation = %+v", req.Conversation)
		}
		json.NewEncoder(w).Encode(tatty.Decision{Reply: &tatty.FinalReply{Text: "hello"}})
	}))
	defer srv.Close()

	cl := New(srv.URL)
	d, err := cl.Decide(context.Background(), []tatty.Message{tatty.UserMessage("hi")}, "/work")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Reply == nil || d.Reply.Text != "hello" {
		t.Errorf("decision = %+v", d)
	}
}

func TestDecideToolInvocations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tools":[{"action":"Bash","args":{"command":"ls"}}]}`))
	}))
	defer srv.Close()

	cl := New(srv.URL)
	d, err := cl.Decide(context.Background(), nil, ".")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Tools) != 1 || d.Tools[0].Action != tatty.ActionBash {
		t.Errorf("decision = %+v", d)
	}
}

func TestDecideSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"reply":{"text":"ok"}}`))
	}))
	defer srv.Close()

	cl := New(srv.URL, WithAPIKey("secret"))
	if _, err := cl.Decide(context.Background(), nil, "."); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("authorization = %q", auth)
	}
}

func TestDecideServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cl := New(srv.URL)
	_, err := cl.Decide(context.Background(), nil, ".")
	if err == nil {
		t.Fatal("expected error")
	}
	var he *tatty.ErrHTTP
	if !errors.As(err, &he) {
		t.Fatalf("error type = %T", err)
	}
	if he.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", he.Status)
	}
	if !strings.Contains(he.Body, "overloaded") {
		t.Errorf("body = %q", he.Body)
	}
}

func TestDecideEmptyDecisionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cl := New(srv.URL)
	if _, err := cl.Decide(context.Background(), nil, "."); err == nil {
		t.Fatal("expected error for empty decision")
	}
}
