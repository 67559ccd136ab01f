package tatty

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// scriptedDecider returns its decisions in order, then keeps returning the
// last one. It records every conversation snapshot it was shown.
type scriptedDecider struct {
	mu        sync.Mutex
	decisions []Decision
	errs      []error
	calls     int
	seen      [][]Message
}

func (d *scriptedDecider) Decide(ctx context.Context, conversation []Message, workingDir string) (Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, append([]Message(nil), conversation...))
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return Decision{}, d.errs[i]
	}
	if len(d.decisions) == 0 {
		return Decision{Reply: &FinalReply{Text: "done"}}, nil
	}
	if i >= len(d.decisions) {
		i = len(d.decisions) - 1
	}
	return d.decisions[i], nil
}

func (d *scriptedDecider) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func replyDecision(text string) Decision {
	return Decision{Reply: &FinalReply{Text: text}}
}

func toolDecision(invs ...Invocation) Decision {
	return Decision{Tools: invs}
}

func invocation(action Action, params map[string]any) Invocation {
	var args json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			panic(err)
		}
		args = b
	}
	return Invocation{ID: NewID(), Action: action, Args: args}
}

// echoRegistry registers a handler that echoes its action name, useful for
// asserting dispatch order.
func echoRegistry(actions ...Action) *Registry {
	reg := NewRegistry()
	for _, a := range actions {
		a := a
		reg.Register(a, func(ctx context.Context, inv Invocation, env Env) string {
			return fmt.Sprintf("ran %s", a)
		})
	}
	return reg
}

// memStore is an in-memory RunStore for asserting persistence calls.
type memStore struct {
	mu    sync.Mutex
	runs  map[string]Run
	turns map[string][]Turn
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]Run), turns: make(map[string][]Turn)}
}

func (s *memStore) CreateRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) FinishRun(ctx context.Context, runID string, outcome Outcome, output string, iterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.Outcome = outcome
	run.Output = output
	run.Iterations = iterations
	run.FinishedAt = NowUnix()
	s.runs[runID] = run
	return nil
}

func (s *memStore) GetRun(ctx context.Context, runID string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("run not found")
	}
	return run, nil
}

func (s *memStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Run
	for _, r := range s.runs {
		if r.ParentID == "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) AppendTurn(ctx context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.RunID] = append(s.turns[turn.RunID], turn)
	return nil
}

func (s *memStore) GetTurns(ctx context.Context, runID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns[runID]...), nil
}

func (s *memStore) Init(ctx context.Context) error { return nil }
func (s *memStore) Close() error                   { return nil }

var _ RunStore = (*memStore)(nil)

func mustResult(t *testing.T, res Result, err error) Result {
	t.Helper()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}
