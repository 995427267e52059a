// Package functions is the capability registry for model-callable
// functions: a mapping from stable string identifiers to a uniform
// asynchronous signature, decoupled from how each function is implemented.
// Schemas advertised to the backend are loaded from embedded YAML.
package functions

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	chatModels "coinsage/internal/domain/models/chat"
	chatSvc "coinsage/internal/domain/services/chat"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Func is the uniform signature every registered function implements.
// Implementations may perform network I/O and must respect context
// cancellation. The returned value must be JSON-serializable.
type Func func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry manages registered functions and their advertised schemas.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	schemas map[string]chatSvc.FunctionSchema
	order   []string
}

// NewRegistry creates a registry preloaded with the embedded function
// schemas. Schemas without a registered implementation are not advertised.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		funcs:   make(map[string]Func),
		schemas: make(map[string]chatSvc.FunctionSchema),
	}

	data, err := configFiles.ReadFile("config/functions.yaml")
	if err != nil {
		return nil, fmt.Errorf("read function schemas: %w", err)
	}

	var file struct {
		Functions []chatSvc.FunctionSchema `yaml:"functions"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal function schemas: %w", err)
	}

	for _, schema := range file.Functions {
		r.schemas[schema.Name] = schema
	}
	return r, nil
}

// Register adds a function under the given name. A function with the same
// name is replaced. Names without an embedded schema get a minimal
// generated one so the backend can still discover them.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.funcs[name] = fn

	if _, ok := r.schemas[name]; !ok {
		r.schemas[name] = chatSvc.FunctionSchema{
			Name:        name,
			Description: fmt.Sprintf("Custom function: %s", name),
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		}
	}
}

// Schemas returns the advertised schemas for all registered functions, in
// registration order.
func (r *Registry) Schemas() []chatSvc.FunctionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chatSvc.FunctionSchema, 0, len(r.order))
	for _, name := range r.order {
		if schema, ok := r.schemas[name]; ok {
			out = append(out, schema)
		}
	}
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}

// Names returns the registered function names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Execute dispatches a function call and reports the outcome as a
// FunctionResult. Execution failures (including unknown names) become
// error-status results, never Go errors: the failure is folded back into
// the conversation so the model can explain it to the user.
func (r *Registry) Execute(ctx context.Context, call *chatModels.FunctionCall) chatModels.FunctionResult {
	r.mu.RLock()
	fn := r.funcs[call.Name]
	r.mu.RUnlock()

	if fn == nil {
		return chatModels.FunctionResult{
			FunctionName: call.Name,
			Result:       fmt.Sprintf("Error: function not found: %s", call.Name),
			Status:       chatModels.StatusError,
		}
	}

	result, err := fn(ctx, call.Arguments)
	if err != nil {
		return chatModels.FunctionResult{
			FunctionName: call.Name,
			Result:       fmt.Sprintf("Error: %v", err),
			Status:       chatModels.StatusError,
		}
	}

	return chatModels.FunctionResult{
		FunctionName: call.Name,
		Result:       result,
		Status:       chatModels.StatusSuccess,
	}
}
