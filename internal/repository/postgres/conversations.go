package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"coinsage/internal/domain"
	chatModels "coinsage/internal/domain/models/chat"
	"coinsage/internal/domain/repositories"
)

// PostgresConversationRepository implements the ConversationRepository
// interface.
type PostgresConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool: config.Pool,
	}
}

// EnsureSchema creates the conversation tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_conversation
			ON conversation_turns (conversation_id, id)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// AppendExchange stores one committed exchange and the updated summary in
// a single transaction.
func (r *PostgresConversationRepository) AppendExchange(ctx context.Context, conversationID string, user, assistant chatModels.Turn, summary string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op after commit

	upsert := `
		INSERT INTO conversations (id, summary, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET summary = $2, updated_at = now()
	`
	if _, err := tx.Exec(ctx, upsert, conversationID, summary); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	insert := `
		INSERT INTO conversation_turns (conversation_id, role, content)
		VALUES ($1, $2, $3)
	`
	for _, turn := range []chatModels.Turn{user, assistant} {
		if _, err := tx.Exec(ctx, insert, conversationID, string(turn.Role), turn.Content); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load returns the committed history and summary for a conversation.
func (r *PostgresConversationRepository) Load(ctx context.Context, conversationID string) ([]chatModels.Turn, string, error) {
	var summary string
	err := r.pool.QueryRow(ctx,
		`SELECT summary FROM conversations WHERE id = $1`,
		conversationID,
	).Scan(&summary)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, "", fmt.Errorf("conversation '%s': %w", conversationID, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("load conversation: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT role, content
		FROM conversation_turns
		WHERE conversation_id = $1
		ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, "", fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var history []chatModels.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, "", fmt.Errorf("scan turn: %w", err)
		}
		history = append(history, chatModels.Turn{
			Role:    chatModels.Role(role),
			Content: content,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate turns: %w", err)
	}

	return history, summary, nil
}

// Clear removes a conversation and all of its turns.
func (r *PostgresConversationRepository) Clear(ctx context.Context, conversationID string) error {
	// Turns cascade from the conversation row.
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1`,
		conversationID,
	); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
