package tatty

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrDecider reports a decision-service failure. Unlike tool failures,
// which are folded into the conversation as strings, a decider error is a
// real error: without a decision the loop cannot make progress.
type ErrDecider struct {
	Iteration int
	Message   string
}

func (e *ErrDecider) Error() string {
	return fmt.Sprintf("decider: iteration %d: %s", e.Iteration, e.Message)
}

// ErrDepthExceeded reports a refused sub-agent recursion: the invocation
// asked for a depth beyond the configured ceiling.
type ErrDepthExceeded struct {
	Depth int
	Limit int
}

func (e *ErrDepthExceeded) Error() string {
	return fmt.Sprintf("sub-agent depth %d exceeds limit %d", e.Depth, e.Limit)
}

// ErrHTTP reports a non-OK response from the decision service. RetryAfter
// carries the server's Retry-After value when present, for the retry
// middleware.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	msg := fmt.Sprintf("http %d", e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ParseRetryAfter parses an HTTP Retry-After header value, either in
// delay-seconds or HTTP-date form. Returns 0 when absent or malformed.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
