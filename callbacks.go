package tatty

import "encoding/json"

// Callbacks is the optional set of hooks a front-end installs to observe a
// run. A nil slot means "do not report this event", never an error. Hooks
// receive value copies, not live references into State, so a front-end
// cannot mutate core state from inside a notification. Hooks observe, they
// never gate: the conversation append happens regardless of what a hook
// does, and a slow hook only delays the loop, it cannot reorder turns.
type Callbacks struct {
	// OnIteration fires at the top of every loop iteration.
	OnIteration func(iteration, depth int)
	// OnToolStart fires before a tool is dispatched. index/total describe
	// the tool's position within the current decision's batch.
	OnToolStart func(action Action, args json.RawMessage, index, total, depth int)
	// OnToolResult fires after a tool returns, with the full result text.
	OnToolResult func(result string, depth int)
	// OnAgentReply fires when the decision service produces a final reply.
	OnAgentReply func(text string)
	// OnStatusUpdate fires around decision-service calls with a short
	// human-readable status line.
	OnStatusUpdate func(status string, iteration int)
	// OnSubAgentStart fires before a sub-agent run begins.
	OnSubAgentStart func(description, prompt string, depth int)
	// OnSubAgentComplete fires after a sub-agent run finishes.
	OnSubAgentComplete func(result string, depth int)
	// OnResponseChunk fires for streaming text chunks of a final reply,
	// when the decision service supports streaming.
	OnResponseChunk func(chunk string)
	// OnThinkingStart / OnThinkingUpdate report reasoning text the
	// decision service exposes alongside its answer.
	OnThinkingStart  func()
	OnThinkingUpdate func(text string)
}

// The fire helpers keep nil checks out of the loop body.

func (c *Callbacks) fireIteration(iteration, depth int) {
	if c != nil && c.OnIteration != nil {
		c.OnIteration(iteration, depth)
	}
}

func (c *Callbacks) fireToolStart(action Action, args json.RawMessage, index, total, depth int) {
	if c != nil && c.OnToolStart != nil {
		// Copy the raw args so a hook cannot mutate the invocation.
		c.OnToolStart(action, append(json.RawMessage(nil), args...), index, total, depth)
	}
}

func (c *Callbacks) fireToolResult(result string, depth int) {
	if c != nil && c.OnToolResult != nil {
		c.OnToolResult(result, depth)
	}
}

func (c *Callbacks) fireAgentReply(text string) {
	if c != nil && c.OnAgentReply != nil {
		c.OnAgentReply(text)
	}
}

func (c *Callbacks) fireStatus(status string, iteration int) {
	if c != nil && c.OnStatusUpdate != nil {
		c.OnStatusUpdate(status, iteration)
	}
}

func (c *Callbacks) fireSubAgentStart(description, prompt string, depth int) {
	if c != nil && c.OnSubAgentStart != nil {
		c.OnSubAgentStart(description, prompt, depth)
	}
}

func (c *Callbacks) fireSubAgentComplete(result string, depth int) {
	if c != nil && c.OnSubAgentComplete != nil {
		c.OnSubAgentComplete(result, depth)
	}
}

func (c *Callbacks) fireThinking(text string) {
	if c == nil || text == "" {
		return
	}
	if c.OnThinkingStart != nil {
		c.OnThinkingStart()
	}
	if c.OnThinkingUpdate != nil {
		c.OnThinkingUpdate(text)
	}
}
