package tatty

import "context"

// Decider is the decision service boundary: given the conversation so far
// and the working directory, return either a final reply or the next tool
// invocation(s). It is the runtime's only LLM-shaped dependency and is
// treated as synchronous; the loop always awaits one full decision before
// proceeding.
type Decider interface {
	Decide(ctx context.Context, conversation []Message, workingDir string) (Decision, error)
}

// StreamingDecider is an optional extension a Decider may implement to
// stream final-reply text. Chunks are delivered through the chunk callback
// as they arrive; the returned Decision carries the complete reply.
type StreamingDecider interface {
	Decider
	DecideStream(ctx context.Context, conversation []Message, workingDir string, chunk func(string)) (Decision, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, conversation []Message, workingDir string) (Decision, error)

func (f DeciderFunc) Decide(ctx context.Context, conversation []Message, workingDir string) (Decision, error) {
	return f(ctx, conversation, workingDir)
}
