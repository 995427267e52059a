package chat

import (
	"context"

	chatModels "coinsage/internal/domain/models/chat"
)

// Backend defines the interface every model backend must implement. This
// abstraction keeps the invocation pipeline provider-neutral (OpenAI
// compatible HTTP, Anthropic SDK, test fakes).
type Backend interface {
	// Send issues one request and blocks until a full response or error.
	// Capacity-limit failures must be classifiable via domain.IsCapacitySignal,
	// so implementations wrap them with domain.ErrCapacity.
	Send(ctx context.Context, req *SendRequest) (*SendResponse, error)

	// Stream issues one request and emits content fragments as they
	// arrive. The returned channel is closed after the final event.
	Stream(ctx context.Context, req *SendRequest) (<-chan StreamEvent, error)

	// Name returns the backend name (e.g. "openai", "anthropic")
	Name() string
}

// SendRequest contains one fully shaped outgoing request.
type SendRequest struct {
	// Messages is the bounded message list, system turn first.
	Messages []chatModels.Turn

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the response size. The invocation controller shrinks
	// this cap across capacity retries.
	MaxTokens int

	// Functions advertises callable capability to the model. Nil means the
	// model may not request function calls.
	Functions []FunctionSchema
}

// SendResponse is the backend's reply in provider-neutral form.
type SendResponse struct {
	Content string

	// FunctionCall is non-nil when the model elected to call a function.
	FunctionCall *chatModels.FunctionCall

	// Usage is the reported token usage, nil when the backend did not
	// report any.
	Usage *chatModels.Usage

	Model string
}

// StreamEvent is one unit of a streaming response. Exactly one terminal
// event is emitted: either Err is set or Done is true.
type StreamEvent struct {
	Text string
	Err  error
	Done bool
}

// FunctionSchema describes one callable function to the backend. It is
// used only to advertise capability; dispatch goes through the function
// registry.
type FunctionSchema struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	Parameters  map[string]interface{} `json:"parameters" yaml:"parameters"`
}
