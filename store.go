package tatty

import "context"

// Run is one recorded agent run, top-level or sub-agent.
type Run struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Task       string  `json:"task"`
	WorkingDir string  `json:"working_dir"`
	Depth      int     `json:"depth"`
	Outcome    Outcome `json:"outcome,omitempty"`
	Output     string  `json:"output,omitempty"`
	Iterations int     `json:"iterations"`
	CreatedAt  int64   `json:"created_at"`
	FinishedAt int64   `json:"finished_at,omitempty"`
}

// Turn is one persisted conversation turn of a run.
type Turn struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Iteration int    `json:"iteration"`
	CreatedAt int64  `json:"created_at"`
}

// RunStore persists run history. The runner writes through it
// best-effort: a failing store is logged and the run continues. Provided
// implementations: store/sqlite (local file, pure Go) and store/postgres.
type RunStore interface {
	// CreateRun records the start of a run.
	CreateRun(ctx context.Context, run Run) error
	// FinishRun records a run's terminal outcome.
	FinishRun(ctx context.Context, runID string, outcome Outcome, output string, iterations int) error
	// GetRun fetches one run by ID.
	GetRun(ctx context.Context, runID string) (Run, error)
	// ListRuns returns the most recent top-level runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// AppendTurn records one conversation turn.
	AppendTurn(ctx context.Context, turn Turn) error
	// GetTurns returns a run's turns in append order.
	GetTurns(ctx context.Context, runID string) ([]Turn, error)

	// Init creates the schema if needed.
	Init(ctx context.Context) error
	// Close releases the underlying connection(s).
	Close() error
}
