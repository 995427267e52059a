package chat

import (
	"fmt"
	"strings"

	chatModels "coinsage/internal/domain/models/chat"
	"coinsage/internal/service/retrieval"
)

// BuildContext concatenates retrieved passages into the prompt-context
// block: "Document i:" sections joined by blank lines, hard-capped at
// maxChars. The cut has no semantic awareness and may land mid-sentence;
// that is accepted in exchange for a guaranteed bound.
func BuildContext(passages []retrieval.Passage, maxChars int) string {
	if len(passages) == 0 {
		return ""
	}

	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		parts = append(parts, fmt.Sprintf("Document %d:\n%s", i+1, p.Text))
	}

	context := strings.Join(parts, "\n\n")
	if maxChars > 0 && len(context) > maxChars {
		context = truncate(context, maxChars)
	}
	return context
}

// InjectContext prefixes the user turn's content with the retrieved
// context. An empty context returns the turn unchanged.
func InjectContext(turn chatModels.Turn, context string) chatModels.Turn {
	if context == "" {
		return turn
	}
	turn.Content = fmt.Sprintf("Context:\n%s\n\nUser question:\n%s", context, turn.Content)
	return turn
}

// SummaryTurn wraps the rolling conversation summary in a system-role turn.
// It is inserted immediately after the primary system turn, before shaping,
// so it participates in (and can be dropped by) the same budget accounting
// as ordinary history.
func SummaryTurn(summary string) chatModels.Turn {
	return chatModels.Turn{
		Role:    chatModels.RoleSystem,
		Content: "Running summary of prior conversation (for context preservation):\n" + summary,
	}
}
