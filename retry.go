package tatty

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// retryDecider wraps a Decider and automatically retries transient HTTP
// errors (status 429 Too Many Requests and 503 Service Unavailable) with
// exponential backoff.
type retryDecider struct {
	inner       Decider
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration // overall timeout across all attempts; 0 = no limit
	logger      *slog.Logger  // nil = nopLogger
}

// RetryOption configures the retry middleware.
type RetryOption func(*retryDecider)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryDecider) { r.maxAttempts = n }
}

// RetryBaseDelay sets the initial backoff delay before the second attempt
// (default: 1s). Each subsequent delay doubles.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryDecider) { r.baseDelay = d }
}

// RetryTimeout sets the overall timeout for the entire retry sequence.
// The zero value (default) disables the timeout.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryDecider) { r.timeout = d }
}

// RetryLogger sets the structured logger for retry events. Retries log at
// WARN, final failures after exhausting attempts at ERROR.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryDecider) { r.logger = l }
}

// WithRetry wraps d with automatic retry on transient HTTP errors (429,
// 503). Retries use exponential backoff with jitter; when the error
// carries a Retry-After duration, the delay is at least that long.
//
//	decider = tatty.WithRetry(httpjson.New(url))
//	decider = tatty.WithRetry(httpjson.New(url), tatty.RetryMaxAttempts(5))
func WithRetry(d Decider, opts ...RetryOption) Decider {
	r := &retryDecider{
		inner:       d,
		maxAttempts: 3,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = nopLogger
	}
	return r
}

// Decide implements Decider with retry.
func (r *retryDecider) Decide(ctx context.Context, conversation []Message, workingDir string) (Decision, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var last error
	for i := 0; i < r.maxAttempts; i++ {
		decision, err := r.inner.Decide(ctx, conversation, workingDir)
		if err == nil || !isTransient(err) {
			return decision, err
		}
		last = err
		r.logger.Warn("retrying transient error",
			"status", statusOf(err),
			"attempt", i+1,
			"max_attempts", r.maxAttempts)
		if i < r.maxAttempts-1 {
			if err := sleepCtx(ctx, retryDelay(r.baseDelay, i, err)); err != nil {
				return Decision{}, err
			}
		}
	}
	r.logger.Error("all retry attempts exhausted",
		"attempts", r.maxAttempts,
		"error", last)
	return Decision{}, last
}

// DecideStream implements StreamingDecider. Retries are only performed if
// no chunks have been delivered yet; once streaming has started, errors
// pass through immediately to avoid duplicate content. When the inner
// decider does not stream, this falls back to Decide.
func (r *retryDecider) DecideStream(ctx context.Context, conversation []Message, workingDir string, chunk func(string)) (Decision, error) {
	sd, ok := r.inner.(StreamingDecider)
	if !ok {
		return r.Decide(ctx, conversation, workingDir)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var last error
	for i := 0; i < r.maxAttempts; i++ {
		var chunksSent bool
		decision, err := sd.DecideStream(ctx, conversation, workingDir, func(s string) {
			chunksSent = true
			chunk(s)
		})
		if err == nil || !isTransient(err) || chunksSent {
			return decision, err
		}
		last = err
		r.logger.Warn("retrying transient error (stream)",
			"status", statusOf(err),
			"attempt", i+1,
			"max_attempts", r.maxAttempts)
		if i < r.maxAttempts-1 {
			if err := sleepCtx(ctx, retryDelay(r.baseDelay, i, err)); err != nil {
				return Decision{}, err
			}
		}
	}
	r.logger.Error("all retry attempts exhausted (stream)",
		"attempts", r.maxAttempts,
		"error", last)
	return Decision{}, last
}

// withTimeout returns a child context with a deadline if r.timeout is
// set. If timeout is zero or ctx already has an earlier deadline, returns
// ctx unchanged.
func (r *retryDecider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	deadline := time.Now().Add(r.timeout)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransient reports whether err is a retryable HTTP error (429 or 503).
func isTransient(err error) bool {
	var e *ErrHTTP
	return errors.As(err, &e) && (e.Status == 429 || e.Status == 503)
}

// statusOf extracts the HTTP status code from an ErrHTTP, or 0.
func statusOf(err error) int {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// retryAfterOf extracts the Retry-After duration from an ErrHTTP, or 0.
func retryAfterOf(err error) time.Duration {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// retryDelay computes the delay before retry attempt i, using exponential
// backoff as a floor and the server's Retry-After value (if present) as a
// minimum.
func retryDelay(base time.Duration, i int, err error) time.Duration {
	backoff := retryBackoff(base, i)
	if ra := retryAfterOf(err); ra > backoff {
		return ra
	}
	return backoff
}

// retryBackoff returns the delay for retry i (0-indexed).
// Exponential: base * 2^i, plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}
