package tatty

import (
	"sync"
	"sync/atomic"
)

// Interrupt is the cooperative cancellation token for one run. Propagation
// is pull-based: the runner polls it between iterations, the registry polls
// it before dispatch, and the process executor polls it while a command is
// alive. One token is shared by a run and every sub-agent it spawns, so
// interrupting the parent stops in-flight children too.
type Interrupt struct {
	requested atomic.Bool
}

// NewInterrupt creates an unset token.
func NewInterrupt() *Interrupt {
	return &Interrupt{}
}

// Request sets the token. Safe to call from any goroutine.
func (i *Interrupt) Request() {
	i.requested.Store(true)
}

// Requested reports whether an interrupt has been requested.
func (i *Interrupt) Requested() bool {
	return i != nil && i.requested.Load()
}

// TodoList is the run-scoped task list, written by the TodoWrite tool and
// read by TodoRead and front-ends. Guarded because callbacks may read it
// from another goroutine while the loop runs.
type TodoList struct {
	mu    sync.Mutex
	items []TodoItem
}

// Replace swaps the entire list for a new one.
func (l *TodoList) Replace(items []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]TodoItem(nil), items...)
}

// Items returns a copy of the current list.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TodoItem(nil), l.items...)
}

// State is the mutable record of one run: conversation so far, todo list,
// interrupt token, iteration/depth counters, and working directory. It is
// exclusively owned by the runner instance executing it; sub-agents get a
// fresh child State, never a shared reference.
type State struct {
	mu         sync.Mutex
	messages   []Message
	todos      *TodoList
	interrupt  *Interrupt
	iteration  int
	depth      int
	workingDir string
}

// NewState creates a depth-0 State rooted at workingDir.
func NewState(workingDir string) *State {
	if workingDir == "" {
		workingDir = "."
	}
	return &State{
		todos:      &TodoList{},
		interrupt:  NewInterrupt(),
		workingDir: workingDir,
	}
}

// child creates the State for a sub-agent: empty conversation, empty todo
// list, depth+1, same working directory. The interrupt token is shared so
// a parent interrupt reaches the child without explicit forwarding.
func (s *State) child() *State {
	return &State{
		todos:      &TodoList{},
		interrupt:  s.interrupt,
		depth:      s.depth + 1,
		workingDir: s.workingDir,
	}
}

func (s *State) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Messages returns a snapshot of the conversation so far.
func (s *State) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *State) nextIteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

// Iteration returns the number of loop iterations started so far.
func (s *State) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Depth returns the sub-agent nesting level, 0 for a top-level run.
func (s *State) Depth() int { return s.depth }

// WorkingDir returns the directory tool handlers resolve paths against.
func (s *State) WorkingDir() string { return s.workingDir }

// Todos returns the run's todo list.
func (s *State) Todos() *TodoList { return s.todos }

// RequestInterrupt asks the run to stop at the next cooperative check
// point. Safe to call from any goroutine (e.g. a signal handler).
func (s *State) RequestInterrupt() { s.interrupt.Request() }

// InterruptRequested reports whether an interrupt has been requested.
func (s *State) InterruptRequested() bool { return s.interrupt.Requested() }
