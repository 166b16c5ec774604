package llm

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one provider-neutral conversation entry.
type Message struct {
	Role    Role
	Content string

	// ToolCalls are set on assistant messages that request tool use.
	ToolCalls []ToolCall

	// ToolCallID and IsError are set on tool result messages.
	ToolCallID string
	IsError    bool
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	// InputSchema is the tool's JSON schema, always an object schema.
	InputSchema map[string]any
}

// Request is one model call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
	MaxTokens   int
}

// Response is the model's reply to a Request.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Usage tracks token consumption of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
