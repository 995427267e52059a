package config

import "time"

// Default budget parameters. All are overridable via environment variables
// (see Load) or per-call policies.
const (
	// DefaultMaxHistoryMessages caps how many history turns are sent to the
	// backend per request.
	DefaultMaxHistoryMessages = 16

	// DefaultMaxPromptChars is the soft character budget for the whole
	// outgoing request, excluding the system turn's reserved share.
	DefaultMaxPromptChars = 28000

	// DefaultRAGContextMaxChars caps retrieved context injected into the
	// user turn.
	DefaultRAGContextMaxChars = 6000

	// DefaultResponseMaxTokens caps the backend's response size.
	DefaultResponseMaxTokens = 600

	// DefaultRetryMaxAttempts bounds the shrink-and-retry loop on capacity
	// errors.
	DefaultRetryMaxAttempts = 3

	// DefaultRetryBaseDelay is the base for exponential backoff between
	// retry attempts.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultRateWindow is the span of both sliding rate windows.
	DefaultRateWindow = time.Minute

	// DefaultSummaryMaxChars bounds the rolling conversation summary.
	// Oldest summary content is evicted from the front on overflow.
	DefaultSummaryMaxChars = 1200

	// MinResponseTokens is the floor the response cap shrinks to during
	// capacity retries.
	MinResponseTokens = 128

	// SystemPromptFloorChars is the minimum system-prompt length kept when
	// the character budget is exhausted, so role context is never fully
	// lost.
	SystemPromptFloorChars = 128

	// TurnOverheadChars approximates per-turn wire framing (role tags,
	// separators) for token estimation.
	TurnOverheadChars = 16
)
