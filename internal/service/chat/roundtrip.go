package chat

import (
	"context"
	"encoding/json"

	chatModels "coinsage/internal/domain/models/chat"
	chatSvc "coinsage/internal/domain/services/chat"
)

// resolveFunctionCall completes a model-initiated function call: dispatch
// the function, fold the request and its result into the working message
// list as two new turns, and invoke the backend once more (without function
// schemas) for the natural-language answer over the enriched conversation.
//
// A failing function does not abort the turn: the function-role turn
// carries an error payload and the model gets to explain the failure.
func (a *Assistant) resolveFunctionCall(
	ctx context.Context,
	call *chatModels.FunctionCall,
	messages []chatModels.Turn,
	policy chatModels.BudgetPolicy,
	temperature float64,
) (string, chatModels.FunctionResult, error) {
	result := a.functions.Execute(ctx, call)
	if result.Status == chatModels.StatusError {
		a.logger.Warn("function execution failed",
			"function", call.Name,
			"result", result.Result,
		)
	}

	messages = append(messages,
		chatModels.Turn{Role: chatModels.RoleAssistant, FunctionCall: call},
		chatModels.Turn{
			Role:    chatModels.RoleFunction,
			Name:    result.FunctionName,
			Content: serializeResult(result.Result),
		},
	)

	// Second call: no function schemas, the model answers in plain text.
	resp, err := a.invoker.Invoke(ctx, messages, policy, InvokeOptions{Temperature: temperature})
	if err != nil {
		return "", result, err
	}
	return resp.Content, result, nil
}

func serializeResult(result interface{}) string {
	data, err := json.Marshal(result)
	if err != nil {
		// Unserializable results degrade to an empty object.
		return "{}"
	}
	return string(data)
}

// hasFunctionCall reports whether a backend response requests a function.
func hasFunctionCall(resp *chatSvc.SendResponse) bool {
	return resp != nil && resp.FunctionCall != nil && resp.FunctionCall.Name != ""
}
