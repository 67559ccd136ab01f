package observer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	tatty "github.com/nevindra/tatty"
)

// Instrument returns callbacks that record run metrics on inst and then
// forward every event to next. Tools execute serially within a run, so a
// start/result pair at a given depth always refers to the same tool.
func Instrument(inst *Instruments, next *tatty.Callbacks) *tatty.Callbacks {
	rec := &recorder{inst: inst, pending: make(map[int]pendingTool)}

	return &tatty.Callbacks{
		OnIteration: func(iteration, depth int) {
			rec.iteration(iteration, depth)
			if next != nil && next.OnIteration != nil {
				next.OnIteration(iteration, depth)
			}
		},
		OnToolStart: func(action tatty.Action, args json.RawMessage, index, total, depth int) {
			rec.toolStart(action, depth)
			if next != nil && next.OnToolStart != nil {
				next.OnToolStart(action, args, index, total, depth)
			}
		},
		OnToolResult: func(result string, depth int) {
			rec.toolResult(result, depth)
			if next != nil && next.OnToolResult != nil {
				next.OnToolResult(result, depth)
			}
		},
		OnAgentReply: forward(next, func(c *tatty.Callbacks) func(string) { return c.OnAgentReply }),
		OnStatusUpdate: func(status string, iteration int) {
			if next != nil && next.OnStatusUpdate != nil {
				next.OnStatusUpdate(status, iteration)
			}
		},
		OnSubAgentStart: func(description, prompt string, depth int) {
			if next != nil && next.OnSubAgentStart != nil {
				next.OnSubAgentStart(description, prompt, depth)
			}
		},
		OnSubAgentComplete: func(result string, depth int) {
			if next != nil && next.OnSubAgentComplete != nil {
				next.OnSubAgentComplete(result, depth)
			}
		},
		OnResponseChunk: forward(next, func(c *tatty.Callbacks) func(string) { return c.OnResponseChunk }),
		OnThinkingStart: func() {
			if next != nil && next.OnThinkingStart != nil {
				next.OnThinkingStart()
			}
		},
		OnThinkingUpdate: forward(next, func(c *tatty.Callbacks) func(string) { return c.OnThinkingUpdate }),
	}
}

func forward(next *tatty.Callbacks, pick func(*tatty.Callbacks) func(string)) func(string) {
	return func(s string) {
		if next == nil {
			return
		}
		if fn := pick(next); fn != nil {
			fn(s)
		}
	}
}

type pendingTool struct {
	action tatty.Action
	start  time.Time
}

type recorder struct {
	inst *Instruments

	mu      sync.Mutex
	pending map[int]pendingTool
}

func (r *recorder) iteration(iteration, depth int) {
	r.inst.Iterations.Add(context.Background(), 1,
		metric.WithAttributes(AttrRunDepth.Int(depth)))
}

func (r *recorder) toolStart(action tatty.Action, depth int) {
	r.mu.Lock()
	r.pending[depth] = pendingTool{action: action, start: time.Now()}
	r.mu.Unlock()
}

func (r *recorder) toolResult(result string, depth int) {
	r.mu.Lock()
	p, ok := r.pending[depth]
	delete(r.pending, depth)
	r.mu.Unlock()
	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		AttrToolName.String(string(p.action)),
		AttrRunDepth.Int(depth),
	}
	r.inst.ToolExecutions.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	r.inst.ToolDuration.Record(context.Background(), float64(time.Since(p.start).Milliseconds()),
		metric.WithAttributes(AttrToolName.String(string(p.action))))
}
