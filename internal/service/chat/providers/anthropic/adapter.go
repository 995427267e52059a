package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	chatModels "coinsage/internal/domain/models/chat"
	chatSvc "coinsage/internal/domain/services/chat"
)

// buildParams converts a provider-neutral request to Anthropic API params.
// System turns become the System field, function schemas become tools, and
// the function round-trip turns become tool_use / tool_result blocks.
func buildParams(model string, req *chatSvc.SendRequest) (*anthropic.MessageNewParams, error) {
	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Functions) > 0 {
		params.Tools = convertTools(req.Functions)
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	// The Messages API carries tool results inside user messages, keyed by
	// the tool_use id of the preceding assistant block. Our turns carry no
	// ids, so one is minted per call and reused for the adjacent result.
	lastToolUseID := ""

	for i, msg := range req.Messages {
		switch msg.Role {
		case chatModels.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{
				Type: "text",
				Text: msg.Content,
			})

		case chatModels.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case chatModels.RoleAssistant:
			if msg.FunctionCall != nil {
				lastToolUseID = uuid.New().String()
				block := anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    lastToolUseID,
						Name:  msg.FunctionCall.Name,
						Input: msg.FunctionCall.Arguments,
					},
				}
				messages = append(messages, anthropic.NewAssistantMessage(block))
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))

		case chatModels.RoleFunction:
			if lastToolUseID == "" {
				return nil, fmt.Errorf("message %d: function result without a preceding function call", i)
			}
			block := anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: lastToolUseID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
					},
				},
			}
			messages = append(messages, anthropic.NewUserMessage(block))

		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
	}

	params.Messages = messages
	return params, nil
}

// convertTools maps function schemas onto Anthropic tool definitions.
func convertTools(schemas []chatSvc.FunctionSchema) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, schema := range schemas {
		tool := anthropic.ToolParam{
			Name:        schema.Name,
			Description: anthropic.String(schema.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schemaProperties(schema),
				Required:   schemaRequired(schema),
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func schemaProperties(schema chatSvc.FunctionSchema) map[string]interface{} {
	if props, ok := schema.Parameters["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

func schemaRequired(schema chatSvc.FunctionSchema) []string {
	raw, ok := schema.Parameters["required"].([]interface{})
	if !ok {
		return nil
	}
	required := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			required = append(required, s)
		}
	}
	return required
}

// convertResponse maps an API message back to the provider-neutral form.
// A tool_use block takes precedence over text content.
func convertResponse(msg *anthropic.Message) (*chatSvc.SendResponse, error) {
	resp := &chatSvc.SendResponse{
		Model: string(msg.Model),
		Usage: &chatModels.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	for _, content := range msg.Content {
		switch content.Type {
		case "text":
			resp.Content += content.Text

		case "tool_use":
			args := make(map[string]interface{})
			if raw := content.JSON.Input.Raw(); raw != "" && raw != "null" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return nil, fmt.Errorf("failed to decode tool input for '%s': %w", content.Name, err)
				}
			}
			resp.FunctionCall = &chatModels.FunctionCall{
				Name:      content.Name,
				Arguments: args,
			}
		}
	}

	return resp, nil
}
