package chat

import (
	"sync"

	"github.com/google/uuid"

	chatModels "coinsage/internal/domain/models/chat"
)

// Conversation owns the canonical message history and the rolling summary
// for one chat session. History and summary mutate only after a turn
// completes successfully (commit-on-success), so a failed or cancelled turn
// never leaves a dangling user turn behind.
type Conversation struct {
	ID string

	mu      sync.Mutex
	history []chatModels.Turn
	summary string
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.NewString()}
}

// History returns a copy of the committed history.
func (c *Conversation) History() []chatModels.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chatModels.Turn(nil), c.history...)
}

// Summary returns the current rolling summary.
func (c *Conversation) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Len returns the number of committed turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Commit appends the user and assistant turns of a completed exchange and
// folds them into the rolling summary, keeping its trailing maxSummaryChars
// characters. Suffix retention is associative: truncating after every
// append yields the same tail as truncating once at the end.
func (c *Conversation) Commit(userMessage, assistantMessage string, maxSummaryChars int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history,
		chatModels.Turn{Role: chatModels.RoleUser, Content: userMessage},
		chatModels.Turn{Role: chatModels.RoleAssistant, Content: assistantMessage},
	)
	c.summary = appendSummary(c.summary, userMessage, assistantMessage, maxSummaryChars)
}

// Restore replaces history and summary wholesale, used when resuming a
// persisted conversation.
func (c *Conversation) Restore(history []chatModels.Turn, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]chatModels.Turn(nil), history...)
	c.summary = summary
}

// Clear drops all history and the summary.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.summary = ""
}

// appendSummary appends one exchange to the summary and keeps the trailing
// maxChars characters. Oldest content is silently evicted from the front,
// never the newest.
func appendSummary(summary, user, assistant string, maxChars int) string {
	s := summary + "user: " + user + "\nassistant: " + assistant + "\n"
	if maxChars > 0 && len(s) > maxChars {
		s = tailBytes(s, maxChars)
	}
	return s
}

// tailBytes keeps the last n bytes of s without splitting a UTF-8 sequence.
func tailBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) {
		r := s[start]
		if r < 0x80 || r >= 0xC0 {
			break
		}
		start++
	}
	return s[start:]
}
