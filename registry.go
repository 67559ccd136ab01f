package tatty

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// InterruptedMessage is the fixed result returned when dispatch is
// short-circuited by an interrupt before the tool runs.
const InterruptedMessage = "Tool execution interrupted by user"

// Env is the explicit runtime context handed to every tool handler: the
// directory paths resolve against, the run's todo list, and the interrupt
// token. Handlers read it; they never reach for process-wide state.
type Env struct {
	WorkingDir string
	Todos      *TodoList
	Interrupt  *Interrupt
	Logger     *slog.Logger
}

// Handler executes one tool invocation and returns a human-readable result
// string. A handler never lets a failure escape: bad paths, nonzero exits,
// and malformed input all come back as descriptive strings, because the
// result always flows into the conversation for the decision service to
// see.
type Handler func(ctx context.Context, inv Invocation, env Env) string

// Registry maps action tags to handlers, decoupling the runner from
// concrete tool implementations. Registered once at startup, read-mostly
// thereafter.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Action]Handler),
		logger:   nopLogger,
	}
}

// SetLogger sets a structured logger for dispatch diagnostics.
func (r *Registry) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Register installs a handler for an action, overwriting any previous one.
func (r *Registry) Register(action Action, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Actions returns the registered action tags.
func (r *Registry) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actions := make([]Action, 0, len(r.handlers))
	for a := range r.handlers {
		actions = append(actions, a)
	}
	return actions
}

// Dispatch routes an invocation to its handler and returns the result
// text. Failures are data, not control flow: an interrupt yields the fixed
// interrupted message, an unknown action yields a literal "unknown tool"
// string, and a panicking handler is recovered into an error string. The
// runner only ever receives strings from this boundary.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation, env Env) string {
	if env.Interrupt.Requested() {
		return InterruptedMessage
	}

	r.mu.RLock()
	h, ok := r.handlers[inv.Action]
	r.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Unknown tool type: %s", inv.Action)
	}
	if env.Logger == nil {
		env.Logger = r.logger
	}

	start := time.Now()
	result := safeHandle(ctx, h, inv, env)
	r.logger.Debug("tool dispatched",
		"action", inv.Action,
		"duration_ms", time.Since(start).Milliseconds(),
		"result_len", len(result))
	return result
}

// safeHandle runs a handler with panic recovery. Anything escaping a
// handler's own guards is a contract violation in that handler, converted
// here to a failure string so the loop continues instead of crashing the
// task.
func safeHandle(ctx context.Context, h Handler, inv Invocation, env Env) (result string) {
	defer func() {
		if p := recover(); p != nil {
			result = fmt.Sprintf("Error executing %s: internal tool fault: %v", inv.Action, p)
		}
	}()
	return h(ctx, inv, env)
}
