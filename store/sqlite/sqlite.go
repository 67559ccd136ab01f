// Package sqlite implements tatty.RunStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	tatty "github.com/nevindra/tatty"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements tatty.RunStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tatty.RunStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			task TEXT NOT NULL,
			working_dir TEXT NOT NULL,
			depth INTEGER NOT NULL,
			outcome TEXT,
			output TEXT,
			iterations INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			finished_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// Indexes on frequently queried columns.
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_turns_run ON turns(run_id)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_parent ON runs(parent_id)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// CreateRun inserts a run record at run start.
func (s *Store) CreateRun(ctx context.Context, run tatty.Run) error {
	start := time.Now()
	s.logger.Debug("sqlite: create run", "id", run.ID, "parent_id", run.ParentID, "depth", run.Depth)

	var parent *string
	if run.ParentID != "" {
		parent = &run.ParentID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, parent_id, task, working_dir, depth, iterations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, parent, run.Task, run.WorkingDir, run.Depth, run.Iterations, run.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: create run failed", "id", run.ID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("create run: %w", err)
	}
	s.logger.Debug("sqlite: create run ok", "id", run.ID, "duration", time.Since(start))
	return nil
}

// FinishRun records a run's terminal outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, outcome tatty.Outcome, output string, iterations int) error {
	start := time.Now()
	s.logger.Debug("sqlite: finish run", "id", runID, "outcome", outcome, "iterations", iterations)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, output = ?, iterations = ?, finished_at = ? WHERE id = ?`,
		string(outcome), output, iterations, time.Now().Unix(), runID,
	)
	if err != nil {
		s.logger.Error("sqlite: finish run failed", "id", runID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	s.logger.Debug("sqlite: finish run ok", "id", runID, "duration", time.Since(start))
	return nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (tatty.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, task, working_dir, depth, outcome, output, iterations, created_at, finished_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent top-level runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]tatty.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, task, working_dir, depth, outcome, output, iterations, created_at, finished_at
		 FROM runs WHERE parent_id IS NULL ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []tatty.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (tatty.Run, error) {
	var run tatty.Run
	var parent, outcome, output sql.NullString
	var finished sql.NullInt64
	err := row.Scan(&run.ID, &parent, &run.Task, &run.WorkingDir, &run.Depth,
		&outcome, &output, &run.Iterations, &run.CreatedAt, &finished)
	if err == sql.ErrNoRows {
		return tatty.Run{}, fmt.Errorf("run not found")
	}
	if err != nil {
		return tatty.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.ParentID = parent.String
	run.Outcome = tatty.Outcome(outcome.String)
	run.Output = output.String
	run.FinishedAt = finished.Int64
	return run, nil
}

// AppendTurn records one conversation turn.
func (s *Store) AppendTurn(ctx context.Context, turn tatty.Turn) error {
	start := time.Now()
	s.logger.Debug("sqlite: append turn", "id", turn.ID, "run_id", turn.RunID, "role", turn.Role, "iteration", turn.Iteration)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO turns (id, run_id, role, content, iteration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.RunID, turn.Role, turn.Content, turn.Iteration, turn.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: append turn failed", "id", turn.ID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// GetTurns returns a run's turns in append order.
func (s *Store) GetTurns(ctx context.Context, runID string) ([]tatty.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, role, content, iteration, created_at
		 FROM turns WHERE run_id = ? ORDER BY created_at ASC, id ASC`, runID)
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

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: store closed")
	return s.db.Close()
}
