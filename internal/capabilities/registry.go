// Package capabilities tracks published model limits (context window,
// output cap, rate limits) and derives budget tuning from them.
package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"coinsage/internal/config"
	chatModels "coinsage/internal/domain/models/chat"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry manages model capabilities across all providers.
type Registry struct {
	providers map[string]*ProviderCapabilities
	mu        sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded YAML files.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*ProviderCapabilities),
	}

	for _, provider := range []string{"openai", "anthropic"} {
		if err := r.loadProviderFile(provider); err != nil {
			return nil, fmt.Errorf("failed to load %s capabilities: %w", provider, err)
		}
	}

	return r, nil
}

func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var providerCaps ProviderCapabilities
	if err := yaml.Unmarshal(data, &providerCaps); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.providers[provider] = &providerCaps
	r.mu.Unlock()

	return nil
}

// GetModelCapabilities returns capabilities for a specific model.
func (r *Registry) GetModelCapabilities(provider, model string) (*ModelCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	for i := range providerCaps.Models {
		if providerCaps.Models[i].ID == model {
			return &providerCaps.Models[i], nil
		}
	}

	return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
}

// ListProviderModels returns all models for a provider (ordered as defined in YAML).
func (r *Registry) ListProviderModels(provider string) ([]ModelCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return providerCaps.Models, nil
}

// GetAllProviders returns all registered provider names.
func (r *Registry) GetAllProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.providers))
	for provider := range r.providers {
		providers = append(providers, provider)
	}
	return providers
}

// TunePolicy narrows a budget policy to a model's published limits.
// Explicitly configured limits stay untouched; only unset rate limits
// and oversized caps are adjusted. Unknown models leave the policy as is.
func (r *Registry) TunePolicy(provider, model string, policy chatModels.BudgetPolicy) chatModels.BudgetPolicy {
	caps, err := r.GetModelCapabilities(provider, model)
	if err != nil {
		return policy
	}

	if policy.RPMLimit == 0 && caps.RequestsPerMinute > 0 {
		policy.RPMLimit = caps.RequestsPerMinute
	}
	if policy.TPMLimit == 0 && caps.TokensPerMinute > 0 {
		policy.TPMLimit = caps.TokensPerMinute
	}
	if caps.MaxOutput > 0 && policy.ResponseMaxTokens > caps.MaxOutput {
		policy.ResponseMaxTokens = caps.MaxOutput
	}

	// Keep the prompt budget comfortably inside the context window,
	// leaving room for the response. Chars estimate at ~4 per token.
	if caps.ContextWindow > 0 {
		promptTokens := caps.ContextWindow - policy.ResponseMaxTokens
		if promptTokens < config.MinResponseTokens {
			promptTokens = config.MinResponseTokens
		}
		if maxChars := promptTokens * 4; policy.MaxPromptChars > maxChars {
			policy.MaxPromptChars = maxChars
		}
	}

	return policy
}
