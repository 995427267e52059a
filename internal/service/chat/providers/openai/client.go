// Package openai implements the chat backend interface against any
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"coinsage/internal/domain"
	chatModels "coinsage/internal/domain/models/chat"
	chatSvc "coinsage/internal/domain/services/chat"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default HTTP timeout for completion requests.
	DefaultTimeout = 120 * time.Second
)

// Client is an OpenAI-compatible chat completions backend.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the given model. An empty baseURL falls
// back to the OpenAI API.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}, nil
}

// NewClientWithHTTPClient creates a client with a custom HTTP client.
func NewClientWithHTTPClient(apiKey, baseURL, model string, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(apiKey, baseURL, model)
	if err != nil {
		return nil, err
	}
	c.httpClient = httpClient
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Send issues one non-streaming completion call.
func (c *Client) Send(ctx context.Context, req *chatSvc.SendRequest) (*chatSvc.SendResponse, error) {
	payload, err := c.buildPayload(req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	body, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	return parseResponse(body)
}

// buildPayload assembles the chat completions request body.
func (c *Client) buildPayload(req *chatSvc.SendRequest, stream bool) ([]byte, error) {
	body := []byte(`{}`)
	var err error

	if body, err = sjson.SetBytes(body, "model", c.model); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "temperature", req.Temperature); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "max_tokens", req.MaxTokens); err != nil {
		return nil, err
	}
	if stream {
		if body, err = sjson.SetBytes(body, "stream", true); err != nil {
			return nil, err
		}
	}

	for i, msg := range req.Messages {
		prefix := fmt.Sprintf("messages.%d", i)
		if body, err = sjson.SetBytes(body, prefix+".role", string(msg.Role)); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, prefix+".content", msg.Content); err != nil {
			return nil, err
		}
		if msg.Name != "" {
			if body, err = sjson.SetBytes(body, prefix+".name", msg.Name); err != nil {
				return nil, err
			}
		}
		if msg.FunctionCall != nil {
			args, merr := json.Marshal(msg.FunctionCall.Arguments)
			if merr != nil {
				return nil, fmt.Errorf("message %d: failed to marshal function arguments: %w", i, merr)
			}
			if body, err = sjson.SetBytes(body, prefix+".function_call.name", msg.FunctionCall.Name); err != nil {
				return nil, err
			}
			// The wire format carries arguments as a JSON string.
			if body, err = sjson.SetBytes(body, prefix+".function_call.arguments", string(args)); err != nil {
				return nil, err
			}
		}
	}

	for i, schema := range req.Functions {
		prefix := fmt.Sprintf("functions.%d", i)
		raw, merr := json.Marshal(schema)
		if merr != nil {
			return nil, fmt.Errorf("failed to marshal schema '%s': %w", schema.Name, merr)
		}
		if body, err = sjson.SetRawBytes(body, prefix, raw); err != nil {
			return nil, err
		}
	}

	return body, nil
}

// post executes the request and returns the raw body of a 200 response.
// Non-200 statuses come back as classified errors.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// classifyStatus maps an error response onto the capacity sentinel where
// the status or the error message signals transient congestion.
func classifyStatus(status int, body []byte) error {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = string(body)
	}
	err := fmt.Errorf("API error (status %d): %s", status, message)

	switch status {
	case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge, http.StatusServiceUnavailable:
		return fmt.Errorf("openai capacity: %w: %w", domain.ErrCapacity, err)
	}
	if domain.IsCapacitySignal(err) {
		return fmt.Errorf("openai capacity: %w: %w", domain.ErrCapacity, err)
	}
	return err
}

// parseResponse extracts the first choice of a completion response.
func parseResponse(body []byte) (*chatSvc.SendResponse, error) {
	choice := gjson.GetBytes(body, "choices.0.message")
	if !choice.Exists() {
		return nil, fmt.Errorf("response has no choices: %s", body)
	}

	resp := &chatSvc.SendResponse{
		Content: choice.Get("content").String(),
		Model:   gjson.GetBytes(body, "model").String(),
	}

	if fc := choice.Get("function_call"); fc.Exists() {
		args := make(map[string]interface{})
		if raw := fc.Get("arguments").String(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("failed to decode function arguments: %w", err)
			}
		}
		resp.FunctionCall = &chatModels.FunctionCall{
			Name:      fc.Get("name").String(),
			Arguments: args,
		}
	}

	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		resp.Usage = &chatModels.Usage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		}
	}

	return resp, nil
}
