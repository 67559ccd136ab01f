package tatty

import "encoding/json"

// --- Conversation types ---

// Message is one turn of a run's conversation. The history is append-only
// within a run; sub-agent conversations are never merged into the parent's.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "tool"
	Content string `json:"content"`
}

// UserMessage builds a user-role turn.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

// AssistantMessage builds an assistant-role turn.
func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

// ToolMessage builds a tool-result turn.
func ToolMessage(text string) Message {
	return Message{Role: "tool", Content: text}
}

// --- Todo types ---

// TodoStatus is the lifecycle state of a TodoItem.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry of a run's task list.
type TodoItem struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	Status   TodoStatus `json:"status"`
	Priority string     `json:"priority"`
}

// --- Tool invocation types ---

// Action identifies which tool an Invocation requests.
type Action string

// The fixed tool catalogue. The registry routes by these tags and never
// interprets the parameters behind them.
const (
	ActionBash               Action = "Bash"
	ActionGlob               Action = "Glob"
	ActionGrep               Action = "Grep"
	ActionLS                 Action = "LS"
	ActionRead               Action = "Read"
	ActionEdit               Action = "Edit"
	ActionMultiEdit          Action = "MultiEdit"
	ActionWrite              Action = "Write"
	ActionNotebookRead       Action = "NotebookRead"
	ActionNotebookEdit       Action = "NotebookEdit"
	ActionWebFetch           Action = "WebFetch"
	ActionWebSearch          Action = "WebSearch"
	ActionTodoRead           Action = "TodoRead"
	ActionTodoWrite          Action = "TodoWrite"
	ActionExitPlanMode       Action = "ExitPlanMode"
	ActionPytestRun          Action = "PytestRun"
	ActionLint               Action = "Lint"
	ActionTypeCheck          Action = "TypeCheck"
	ActionFormat             Action = "Format"
	ActionDependency         Action = "Dependency"
	ActionGitDiff            Action = "GitDiff"
	ActionInstallPackages    Action = "InstallPackages"
	ActionArtifactManagement Action = "ArtifactManagement"
	ActionAgent              Action = "Agent"
)

// Invocation is one requested tool call: an action tag plus the raw
// parameter document for that tool. Handlers unmarshal Args into their
// own typed parameter structs; the registry only routes by Action.
type Invocation struct {
	ID     string          `json:"id"`
	Action Action          `json:"action"`
	Args   json.RawMessage `json:"args"`
}

// AgentParams are the parameters of the Agent (sub-agent delegation)
// action. Declared here because the runner, not a tool package, handles it.
type AgentParams struct {
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// unmarshalParams decodes an invocation's raw args into a typed parameter
// struct, treating an absent document as all-defaults.
func unmarshalParams(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// --- Decision types ---

// FinalReply is the decision service's terminal answer for a run.
type FinalReply struct {
	Text     string `json:"text"`
	Thinking string `json:"thinking,omitempty"`
}

// Decision is one answer from the decision service: either a final reply
// or one or more tool invocations to execute in order. Exactly one of the
// two fields is set.
type Decision struct {
	Reply *FinalReply  `json:"reply,omitempty"`
	Tools []Invocation `json:"tools,omitempty"`
}
