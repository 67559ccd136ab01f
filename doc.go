// Package tatty is an agent execution runtime: given a natural-language
// task, it repeatedly asks a decision service for the next action,
// executes that action through a fixed catalogue of tools, and feeds the
// result back until the task is judged complete or a limit is reached.
//
// The runtime owns iteration control, recursion into sub-agents,
// cooperative cancellation of long-running external processes, and a
// uniform progress-reporting contract consumed by independent front-ends.
// It deliberately does not own the decision logic itself: the Decider
// interface treats "given conversation state, return one action or a
// final reply" as an opaque capability.
//
// # Quick Start
//
//	reg := tatty.NewRegistry()
//	system.Register(reg)
//	file.Register(reg)
//	dev.Register(reg)
//	plan.Register(reg)
//
//	runner := tatty.NewRunner(decider,
//		tatty.WithRegistry(reg),
//		tatty.WithWorkingDir(dir),
//		tatty.WithCallbacks(tatty.Callbacks{
//			OnToolStart: func(a tatty.Action, _ json.RawMessage, i, n, depth int) {
//				fmt.Printf("tool %s (%d/%d)\n", a, i, n)
//			},
//		}),
//	)
//	result, err := runner.Run(ctx, "run the tests and fix the first failure")
//
// # Core contracts
//
//   - [Decider]: the decision service boundary
//   - [Registry] / [Handler]: name-keyed tool dispatch
//   - [State]: per-run conversation, todos, counters, interrupt token
//   - [Callbacks]: optional front-end observation hooks
//   - [RunStore]: optional run history persistence
//   - proc.Run: the interruptible process executor all process-spawning
//     tools are required to use
//
// Tool implementations live under tools/ (system, file, notebook, web,
// plan, dev, artifact); persistence under store/ (sqlite, postgres);
// OTEL-backed tracing and metrics under observer/; the HTTP decision
// client under decider/httpjson; HTML transcript rendering under
// frontend/notebook.
package tatty
