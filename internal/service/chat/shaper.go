package chat

import (
	"unicode/utf8"

	"coinsage/internal/config"
	chatModels "coinsage/internal/domain/models/chat"
)

// ShapeMessages bounds a full conversation to the policy's count and
// character budgets. The system turn (when present, always first) and the
// newest turns are kept preferentially; when the system instruction and the
// history cannot both fit, recency and user intent win and the system
// content is truncated, never below a fixed floor. The result preserves
// chronological order.
func ShapeMessages(messages []chatModels.Turn, policy chatModels.BudgetPolicy) []chatModels.Turn {
	if len(messages) == 0 {
		return messages
	}

	var system *chatModels.Turn
	history := messages
	if messages[0].Role == chatModels.RoleSystem {
		system = &messages[0]
		history = messages[1:]
	}

	maxHistory := policy.MaxHistoryMessages
	if maxHistory < 1 {
		maxHistory = 1
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	budget := policy.MaxPromptChars
	kept := trimToBudget(history, budget)

	if system == nil {
		return kept
	}

	used := 0
	for _, m := range kept {
		used += m.ContentLen()
	}

	sys := *system
	remaining := budget - used
	switch {
	case remaining >= sys.ContentLen():
		// fits whole
	case remaining > 0:
		sys.Content = truncate(sys.Content, remaining)
	default:
		// No room left; keep a short prefix so role context is never
		// fully lost.
		sys.Content = truncate(sys.Content, config.SystemPromptFloorChars)
	}

	out := make([]chatModels.Turn, 0, len(kept)+1)
	out = append(out, sys)
	out = append(out, kept...)
	return out
}

// trimToBudget scans newest to oldest, keeping turns while the running
// character total stays within budget. Scanning stops at the first turn
// that would overflow, so the survivors form a contiguous suffix. If even
// the single newest turn exceeds the budget on its own, it is truncated to
// fit rather than dropped: at least one (possibly partial) turn is always
// sent.
func trimToBudget(history []chatModels.Turn, budget int) []chatModels.Turn {
	var keptReversed []chatModels.Turn
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		size := msg.ContentLen()
		if used+size <= budget {
			keptReversed = append(keptReversed, msg)
			used += size
			continue
		}
		if len(keptReversed) == 0 && size > 0 {
			part := budget
			if part < 0 {
				part = 0
			}
			msg.Content = truncate(msg.Content, part)
			keptReversed = append(keptReversed, msg)
		}
		break
	}

	kept := make([]chatModels.Turn, len(keptReversed))
	for i, msg := range keptReversed {
		kept[len(kept)-1-i] = msg
	}
	return kept
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
