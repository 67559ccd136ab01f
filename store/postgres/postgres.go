// Package postgres implements tatty.RunStore using PostgreSQL.
//
// The store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	tatty "github.com/nevindra/tatty"
)

// Store implements tatty.RunStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ tatty.RunStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates all required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			task TEXT NOT NULL,
			working_dir TEXT NOT NULL,
			depth INTEGER NOT NULL DEFAULT 0,
			outcome TEXT,
			output TEXT,
			iterations INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			finished_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS runs_parent_idx ON runs(parent_id)`,
		`CREATE INDEX IF NOT EXISTS runs_created_idx ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			iteration INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS turns_run_idx ON turns(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a run record at run start.
func (s *Store) CreateRun(ctx context.Context, run tatty.Run) error {
	var parent *string
	if run.ParentID != "" {
		parent = &run.ParentID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, parent_id, task, working_dir, depth, iterations, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, parent, run.Task, run.WorkingDir, run.Depth, run.Iterations, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records a run's terminal outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, outcome tatty.Outcome, output string, iterations int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET outcome = $1, output = $2, iterations = $3, finished_at = EXTRACT(EPOCH FROM now())::bigint
		 WHERE id = $4`,
		string(outcome), output, iterations, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

const runColumns = `id, COALESCE(parent_id, ''), task, working_dir, depth,
	COALESCE(outcome, ''), COALESCE(output, ''), iterations, created_at, COALESCE(finished_at, 0)`

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (tatty.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	var run tatty.Run
	var outcome string
	err := row.Scan(&run.ID, &run.ParentID, &run.Task, &run.WorkingDir, &run.Depth,
		&outcome, &run.Output, &run.Iterations, &run.CreatedAt, &run.FinishedAt)
	if err == pgx.ErrNoRows {
		return tatty.Run{}, fmt.Errorf("run not found")
	}
	if err != nil {
		return tatty.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Outcome = tatty.Outcome(outcome)
	return run, nil
}

// ListRuns returns the most recent top-level runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]tatty.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE parent_id IS NULL
		 ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []tatty.Run
	for rows.Next() {
		var run tatty.Run
		var outcome string
		if err := rows.Scan(&run.ID, &run.ParentID, &run.Task, &run.WorkingDir, &run.Depth,
			&outcome, &run.Output, &run.Iterations, &run.CreatedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Outcome = tatty.Outcome(outcome)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AppendTurn records one conversation turn.
func (s *Store) AppendTurn(ctx context.Context, turn tatty.Turn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO turns (id, run_id, role, content, iteration, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		turn.ID, turn.RunID, turn.Role, turn.Content, turn.Iteration, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// GetTurns returns a run's turns in append order.
func (s *Store) GetTurns(ctx context.Context, runID string) ([]tatty.Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, role, content, iteration, created_at
		 FROM turns WHERE run_id = $1 ORDER BY created_at ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	var turns []tatty.Turn
	for rows.Next() {
		var t tatty.Turn
		if err := rows.Scan(&t.ID, &t.RunID, &t.Role, &t.Content, &t.Iteration, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }
