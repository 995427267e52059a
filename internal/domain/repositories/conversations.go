package repositories

import (
	"context"

	chatModels "coinsage/internal/domain/models/chat"
)

// ConversationRepository persists committed conversation state. The chat
// service works purely in memory when no repository is configured;
// persistence is write-behind and never blocks a turn from completing.
type ConversationRepository interface {
	// AppendExchange stores one committed user/assistant exchange and the
	// updated rolling summary for a conversation, creating the
	// conversation on first write.
	AppendExchange(ctx context.Context, conversationID string, user, assistant chatModels.Turn, summary string) error

	// Load returns the committed history and rolling summary for a
	// conversation. A missing conversation returns domain.ErrNotFound.
	Load(ctx context.Context, conversationID string) ([]chatModels.Turn, string, error)

	// Clear removes all turns and the summary for a conversation.
	Clear(ctx context.Context, conversationID string) error
}
