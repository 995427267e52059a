package chat

import (
	"coinsage/internal/config"
	chatModels "coinsage/internal/domain/models/chat"
)

// TokenEstimator approximates the token cost of an outgoing request. The
// estimate feeds the rate limiter's token window; it deliberately does not
// try to match the backend tokenizer, only to keep throttling on the safe
// side of the configured volume.
type TokenEstimator interface {
	Estimate(messages []chatModels.Turn, responseCap int) int
}

// HeuristicEstimator is the chars/4 estimator: prompt characters plus a
// fixed per-turn framing overhead, divided by four and rounded up, plus the
// full response cap (the response counts against the token window too).
type HeuristicEstimator struct {
	// OverheadChars approximates wire framing per turn. Zero means the
	// config default.
	OverheadChars int
}

func (h HeuristicEstimator) Estimate(messages []chatModels.Turn, responseCap int) int {
	overhead := h.OverheadChars
	if overhead <= 0 {
		overhead = config.TurnOverheadChars
	}

	chars := 0
	for _, m := range messages {
		chars += m.ContentLen() + overhead
	}
	return (chars+3)/4 + responseCap
}
