package tatty

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Default iteration and recursion ceilings. A sub-agent gets a higher
// iteration budget than a top-level task because delegated work tends to
// be tool-heavy, while recursion depth stays tightly bounded.
const (
	DefaultMaxIterations      = 20
	DefaultSubAgentIterations = 50
	DefaultMaxDepth           = 5
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomeCompleted: the decision service produced a final reply.
	OutcomeCompleted Outcome = "completed"
	// OutcomeInterrupted: the run was cooperatively cancelled.
	OutcomeInterrupted Outcome = "interrupted"
	// OutcomeIterationLimit: the iteration ceiling was reached; the
	// result carries the best available partial output.
	OutcomeIterationLimit Outcome = "iteration_limit_exceeded"
	// OutcomeFailed: the decision service failed; the accompanying error
	// has details.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of one run (top-level or sub-agent).
type Result struct {
	RunID      string
	Output     string
	Outcome    Outcome
	Iterations int
	Messages   []Message
}

// Runner drives one task to completion: it repeatedly asks the decision
// service for the next step, dispatches tools through the registry, feeds
// results back into the conversation, and recurses for sub-agent
// delegations. A Runner is safe to reuse across runs; each run owns its
// own State.
type Runner struct {
	decider    Decider
	registry   *Registry
	callbacks  *Callbacks
	store      RunStore
	tracer     Tracer
	logger     *slog.Logger
	workingDir string

	maxIterations      int
	subAgentIterations int
	maxDepth           int
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry sets the tool registry. Without one, every tool dispatch
// reports an unknown tool.
func WithRegistry(reg *Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithCallbacks installs front-end observation hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(r *Runner) { r.callbacks = &cb }
}

// WithStore enables best-effort run history persistence.
func WithStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithTracer enables span emission for runs, iterations, and dispatches.
func WithTracer(t Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWorkingDir sets the directory runs resolve paths against.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) { r.workingDir = dir }
}

// WithMaxIterations sets the top-level iteration ceiling.
func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithSubAgentIterations sets the per-sub-agent iteration ceiling.
func WithSubAgentIterations(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.subAgentIterations = n
		}
	}
}

// WithMaxDepth sets the sub-agent recursion ceiling.
func WithMaxDepth(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// NewRunner creates a Runner around a decision service.
func NewRunner(decider Decider, opts ...Option) *Runner {
	r := &Runner{
		decider:            decider,
		registry:           NewRegistry(),
		logger:             nopLogger,
		workingDir:         ".",
		maxIterations:      DefaultMaxIterations,
		subAgentIterations: DefaultSubAgentIterations,
		maxDepth:           DefaultMaxDepth,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes a task with a fresh depth-0 State.
func (r *Runner) Run(ctx context.Context, task string) (Result, error) {
	return r.RunState(ctx, NewState(r.workingDir), task)
}

// RunState executes a task against a caller-provided State. The caller
// keeps the State handle to request interrupts mid-run. The State must be
// fresh and depth 0; sub-agent states are constructed internally.
func (r *Runner) RunState(ctx context.Context, st *State, task string) (Result, error) {
	if st.Depth() != 0 {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("run requires a depth-0 state, got depth %d", st.Depth())
	}
	if r.tracer != nil {
		var span Span
		ctx, span = r.tracer.Start(ctx, "runner.run",
			StringAttr("task", truncateStr(task, 200)))
		defer span.End()

		result, err := r.runLoop(ctx, st, task, "", r.maxIterations)
		span.SetAttr(
			StringAttr("outcome", string(result.Outcome)),
			IntAttr("iterations", result.Iterations))
		if err != nil {
			span.Error(err)
		}
		return result, err
	}
	return r.runLoop(ctx, st, task, "", r.maxIterations)
}

// runLoop is the shared iteration algorithm, identical at every depth:
// the top-level task and every sub-agent run through this one code path,
// so interrupt handling, ceilings, and callbacks behave uniformly by
// construction.
func (r *Runner) runLoop(ctx context.Context, st *State, task, parentRunID string, maxIter int) (Result, error) {
	runID := NewID()
	task = NormalizeTask(task)

	st.append(UserMessage(task))
	r.persistRunStart(ctx, runID, parentRunID, st, task)
	r.persistTurn(ctx, runID, st, UserMessage(task))

	env := Env{
		WorkingDir: st.WorkingDir(),
		Todos:      st.Todos(),
		Interrupt:  st.interrupt,
		Logger:     r.logger,
	}

	// lastToolResult is the best available partial output if the run ends
	// without a final reply.
	var lastToolResult string

	finish := func(outcome Outcome, output string) Result {
		res := Result{
			RunID:      runID,
			Output:     output,
			Outcome:    outcome,
			Iterations: st.Iteration(),
			Messages:   st.Messages(),
		}
		r.persistRunFinish(ctx, runID, res)
		r.logger.Info("run finished",
			"run_id", runID,
			"depth", st.Depth(),
			"outcome", outcome,
			"iterations", res.Iterations)
		return res
	}

	for st.Iteration() < maxIter {
		iter := st.nextIteration()
		r.callbacks.fireIteration(iter, st.Depth())

		iterCtx := ctx
		var iterSpan Span
		if r.tracer != nil {
			iterCtx, iterSpan = r.tracer.Start(ctx, "runner.loop.iteration",
				IntAttr("iteration", iter),
				IntAttr("depth", st.Depth()))
		}
		endIter := func() {
			if iterSpan != nil {
				iterSpan.End()
			}
		}

		if st.InterruptRequested() {
			endIter()
			return finish(OutcomeInterrupted, lastToolResult), nil
		}

		r.callbacks.fireStatus("deciding next step", iter)
		decision, err := r.decide(iterCtx, st)
		if err != nil {
			endIter()
			res := finish(OutcomeFailed, lastToolResult)
			return res, &ErrDecider{Iteration: iter, Message: err.Error()}
		}

		if decision.Reply != nil {
			r.callbacks.fireThinking(decision.Reply.Thinking)
			r.callbacks.fireAgentReply(decision.Reply.Text)
			msg := AssistantMessage(decision.Reply.Text)
			st.append(msg)
			r.persistTurn(iterCtx, runID, st, msg)
			endIter()
			return finish(OutcomeCompleted, decision.Reply.Text), nil
		}

		if iterSpan != nil {
			iterSpan.SetAttr(IntAttr("tool_count", len(decision.Tools)))
		}

		// Record the decision as an assistant turn so every tool result is
		// attributed to exactly one preceding decision.
		decisionMsg := AssistantMessage(renderInvocations(decision.Tools))
		st.append(decisionMsg)
		r.persistTurn(iterCtx, runID, st, decisionMsg)

		// Tools execute serially, in decision order. The result turn is
		// appended immediately after each execution; callbacks observe but
		// never gate the append.
		total := len(decision.Tools)
		for i, inv := range decision.Tools {
			r.callbacks.fireToolStart(inv.Action, inv.Args, i+1, total, st.Depth())

			var result string
			if inv.Action == ActionAgent {
				result = r.runSubAgent(iterCtx, st, runID, inv)
			} else {
				result = r.registry.Dispatch(iterCtx, inv, env)
			}

			r.callbacks.fireToolResult(result, st.Depth())
			msg := ToolMessage(result)
			st.append(msg)
			r.persistTurn(iterCtx, runID, st, msg)
			lastToolResult = result
		}
		endIter()
	}

	r.logger.Warn("iteration limit reached",
		"run_id", runID,
		"depth", st.Depth(),
		"max_iterations", maxIter)
	output := lastToolResult
	if output == "" {
		output = fmt.Sprintf("Task stopped after reaching the %d-iteration limit with no tool output.", maxIter)
	}
	return finish(OutcomeIterationLimit, output), nil
}

// decide obtains one decision, streaming reply chunks through the
// OnResponseChunk hook when both sides support it.
func (r *Runner) decide(ctx context.Context, st *State) (Decision, error) {
	if r.callbacks != nil && r.callbacks.OnResponseChunk != nil {
		if sd, ok := r.decider.(StreamingDecider); ok {
			return sd.DecideStream(ctx, st.Messages(), st.WorkingDir(), r.callbacks.OnResponseChunk)
		}
	}
	return r.decider.Decide(ctx, st.Messages(), st.WorkingDir())
}

// runSubAgent handles the Agent action: a fresh child State at depth+1
// (sharing the parent's interrupt token), the sub-agent iteration ceiling,
// and the same working directory. The child's final text folds back into
// the parent's conversation as a single tool-result turn; message lists
// are never merged across depths.
func (r *Runner) runSubAgent(ctx context.Context, st *State, parentRunID string, inv Invocation) string {
	var params AgentParams
	if err := unmarshalParams(inv.Args, &params); err != nil {
		return "Sub-agent error: invalid parameters: " + err.Error()
	}
	if params.Prompt == "" {
		return "Sub-agent error: prompt is required"
	}

	child := st.child()
	if child.Depth() > r.maxDepth {
		err := &ErrDepthExceeded{Depth: child.Depth(), Limit: r.maxDepth}
		r.logger.Warn("sub-agent recursion refused", "depth", child.Depth(), "limit", r.maxDepth)
		return "Sub-agent error: " + err.Error()
	}

	r.callbacks.fireSubAgentStart(params.Description, params.Prompt, child.Depth())

	res, err := r.runLoop(ctx, child, params.Prompt, parentRunID, r.subAgentIterations)
	var folded string
	if err != nil {
		folded = fmt.Sprintf("Sub-agent error: %v", err)
	} else {
		folded = fmt.Sprintf("Sub-agent completed:\nTask: %s\nResult: %s", params.Description, res.Output)
	}

	r.callbacks.fireSubAgentComplete(folded, child.Depth())
	return folded
}

// renderInvocations produces the compact assistant-turn text recording
// which tools an iteration chose.
func renderInvocations(invs []Invocation) string {
	var b strings.Builder
	b.WriteString("Executing tools:")
	for _, inv := range invs {
		b.WriteString("\n- ")
		b.WriteString(string(inv.Action))
		if len(inv.Args) > 0 {
			b.WriteString(" ")
			b.WriteString(truncateStr(string(inv.Args), 200))
		}
	}
	return b.String()
}

// --- persistence (best-effort: storage trouble never fails a run) ---

func (r *Runner) persistRunStart(ctx context.Context, runID, parentRunID string, st *State, task string) {
	if r.store == nil {
		return
	}
	err := r.store.CreateRun(ctx, Run{
		ID:         runID,
		ParentID:   parentRunID,
		Task:       task,
		WorkingDir: st.WorkingDir(),
		Depth:      st.Depth(),
		CreatedAt:  NowUnix(),
	})
	if err != nil {
		r.logger.Warn("run persistence failed, continuing", "run_id", runID, "error", err)
	}
}

func (r *Runner) persistRunFinish(ctx context.Context, runID string, res Result) {
	if r.store == nil {
		return
	}
	if err := r.store.FinishRun(ctx, runID, res.Outcome, res.Output, res.Iterations); err != nil {
		r.logger.Warn("run persistence failed, continuing", "run_id", runID, "error", err)
	}
}

func (r *Runner) persistTurn(ctx context.Context, runID string, st *State, m Message) {
	if r.store == nil {
		return
	}
	err := r.store.AppendTurn(ctx, Turn{
		ID:        NewID(),
		RunID:     runID,
		Role:      m.Role,
		Content:   m.Content,
		Iteration: st.Iteration(),
		CreatedAt: NowUnix(),
	})
	if err != nil {
		r.logger.Warn("turn persistence failed, continuing", "run_id", runID, "error", err)
	}
}

// truncateStr truncates a string to n runes.
func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
