package contract

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a thread transcript. Messages are append-only:
// once added to a thread they are never mutated or reordered.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolName, ToolCallID, and ToolArgs are set on RoleTool messages so
	// the transcript replays cleanly against the completion service.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
}

// Intent is the closed-set label produced by the intent classifier.
type Intent string

const (
	IntentValid   Intent = "valid"
	IntentUnknown Intent = "unknown"
)

// ToolInvocation is a single tool call requested by the completion service.
// It lives only for the duration of one store-agent pass.
type ToolInvocation struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Args    map[string]any `json:"args,omitempty"`
	RawArgs string         `json:"raw_args,omitempty"`
}

// ToolSpec describes one gateway operation: name, human description, and a
// JSON Schema for its arguments.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"input_schema"`
}

// Stop reasons the store agent branches on. Anything else is surfaced to the
// user verbatim.
const (
	StopReasonStop      = "stop"
	StopReasonToolCalls = "tool_calls"
)

// CompletionRequest carries a transcript and an optional tool catalog.
type CompletionRequest struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Completion is the completion service's answer: either free text content or
// one or more requested tool invocations, plus the literal stop reason.
type Completion struct {
	Content    string
	ToolCalls  []ToolInvocation
	StopReason string
}
