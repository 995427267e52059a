// Package anthropic adapts the Anthropic Messages API to the chat backend
// interface, including the tool round trip for function calling.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"coinsage/internal/domain"
	chatSvc "coinsage/internal/domain/services/chat"
)

// Provider implements the chat Backend interface for Claude models.
type Provider struct {
	client *anthropic.Client
	model  string
}

// NewProvider creates an Anthropic backend for the given model.
func NewProvider(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
		model:  model,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Send performs one non-streaming message call.
func (p *Provider) Send(ctx context.Context, req *chatSvc.SendRequest) (*chatSvc.SendResponse, error) {
	params, err := buildParams(p.model, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	message, err := p.client.Messages.New(ctx, *params)
	if err != nil {
		return nil, classifyError(err)
	}

	return convertResponse(message)
}

// classifyError maps API failures onto the capacity sentinel so the
// invoker can tell retryable congestion from hard backend faults.
func classifyError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429, 413, 529:
			return fmt.Errorf("anthropic capacity: %w: %w", domain.ErrCapacity, err)
		}
	}
	if domain.IsCapacitySignal(err) {
		return fmt.Errorf("anthropic capacity: %w: %w", domain.ErrCapacity, err)
	}
	return fmt.Errorf("anthropic API call failed: %w", err)
}
