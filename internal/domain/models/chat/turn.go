package chat

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Turn is one message in a conversation. Ordering is significant; a
// conversation is an ordered sequence of turns.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name carries the function name on function-role turns.
	Name string `json:"name,omitempty"`
	// FunctionCall is set on assistant turns that request a function call.
	// Such turns have no content.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// ContentLen returns the turn's content length in bytes. All character
// budgets in the shaper use this byte-length approximation.
func (t Turn) ContentLen() int { return len(t.Content) }

// FunctionCall is a model-requested function invocation. Arguments are a
// structured mapping by the time any component sees them, regardless of
// wire encoding.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// FunctionResult is the outcome of dispatching a FunctionCall. It is never
// persisted beyond folding into two new turns (assistant function-call turn,
// function-result turn).
type FunctionResult struct {
	FunctionName string      `json:"function_name"`
	Result       interface{} `json:"result"`
	Status       string      `json:"status"` // "success" or "error"
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Usage reports token consumption as returned by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
