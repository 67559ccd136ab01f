// Package httpjson implements tatty.Decider against a JSON-over-HTTP
// decision service.
//
// The client POSTs the conversation and working directory to the
// configured endpoint and expects a tatty.Decision document back:
//
//	{"reply": {"text": "..."}}            a final reply, or
//	{"tools": [{"action": "Bash", ...}]}  tool invocations to execute.
//
// Works with any service that speaks this shape; authentication is a
// bearer token when an API key is configured.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tatty "github.com/nevindra/tatty"
)

const defaultTimeout = 5 * time.Minute

// Client is a Decider backed by a remote decision service.
type Client struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return func(cl *Client) { cl.apiKey = key }
}

// WithLogger sets a structured logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Client for the given decision endpoint URL.
func New(url string, opts ...Option) *Client {
	cl := &Client{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
		logger: nopLogger,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

type decideRequest struct {
	Conversation []tatty.Message `json:"conversation"`
	WorkingDir   string          `json:"working_dir"`
}

// Decide sends the conversation to the decision service and returns its
// decision.
func (cl *Client) Decide(ctx context.Context, conversation []tatty.Message, workingDir string) (tatty.Decision, error) {
	payload, err := json.Marshal(decideRequest{
		Conversation: conversation,
		WorkingDir:   workingDir,
	})
	if err != nil {
		return tatty.Decision{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.url, bytes.NewReader(payload))
	if err != nil {
		return tatty.Decision{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cl.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+cl.apiKey)
	}

	start := time.Now()
	resp, err := cl.client.Do(req)
	if err != nil {
		return tatty.Decision{}, fmt.Errorf("decision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return tatty.Decision{}, &tatty.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: tatty.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decision tatty.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return tatty.Decision{}, fmt.Errorf("decode decision: %w", err)
	}

	if decision.Reply == nil && len(decision.Tools) == 0 {
		return tatty.Decision{}, fmt.Errorf("decision carries neither reply nor tools")
	}

	cl.logger.Debug("decision received",
		"duration_ms", time.Since(start).Milliseconds(),
		"tools", len(decision.Tools),
		"final", decision.Reply != nil)
	return decision, nil
}

// Compile-time interface check.
var _ tatty.Decider = (*Client)(nil)
