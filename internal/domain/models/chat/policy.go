package chat

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"coinsage/internal/config"
)

// BudgetPolicy is the pure configuration every budgeting component reads:
// message-count cap, character budgets, response-size cap, retry/backoff
// parameters, and sliding-window limiter parameters. It is immutable and
// shared by value; a zero limit disables the corresponding rate window.
type BudgetPolicy struct {
	MaxHistoryMessages int
	MaxPromptChars     int
	RAGContextMaxChars int
	ResponseMaxTokens  int
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RPMLimit           int
	RPMWindow          time.Duration
	TPMLimit           int
	TPMWindow          time.Duration
	SummaryMaxChars    int
}

// DefaultBudgetPolicy returns the stock policy. Rate limits default to
// disabled; deployments enable them per backend credential.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		MaxHistoryMessages: config.DefaultMaxHistoryMessages,
		MaxPromptChars:     config.DefaultMaxPromptChars,
		RAGContextMaxChars: config.DefaultRAGContextMaxChars,
		ResponseMaxTokens:  config.DefaultResponseMaxTokens,
		RetryMaxAttempts:   config.DefaultRetryMaxAttempts,
		RetryBaseDelay:     config.DefaultRetryBaseDelay,
		RPMLimit:           0,
		RPMWindow:          config.DefaultRateWindow,
		TPMLimit:           0,
		TPMWindow:          config.DefaultRateWindow,
		SummaryMaxChars:    config.DefaultSummaryMaxChars,
	}
}

// Validate checks the policy for internally consistent values.
func (p BudgetPolicy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxHistoryMessages, validation.Required, validation.Min(1)),
		validation.Field(&p.MaxPromptChars, validation.Required, validation.Min(config.SystemPromptFloorChars)),
		validation.Field(&p.RAGContextMaxChars, validation.Min(0)),
		validation.Field(&p.ResponseMaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&p.RetryMaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&p.RetryBaseDelay, validation.Required),
		validation.Field(&p.RPMLimit, validation.Min(0)),
		validation.Field(&p.TPMLimit, validation.Min(0)),
		validation.Field(&p.SummaryMaxChars, validation.Required, validation.Min(1)),
	)
}
