// Package retrieval defines the retrieval collaborator consumed by the chat
// pipeline: given a query, return ranked text passages. The chat core only
// depends on this interface; vector-backed implementations live behind it.
package retrieval

import (
	"context"
	"errors"
)

// ErrNoStore is returned when a retrieval operation is requested but no
// store has been configured.
var ErrNoStore = errors.New("no retrieval store configured")

// DefaultTopK is the number of passages retrieved per query when the caller
// does not specify one.
const DefaultTopK = 3

// Passage is one ranked retrieval result.
type Passage struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score"`
}

// Store is the retrieval interface. Implementations must be safe for
// concurrent use.
type Store interface {
	// Search returns up to k passages ranked by relevance to the query.
	Search(ctx context.Context, query string, k int) ([]Passage, error)

	// Add ingests raw texts (chunking them as needed) with optional
	// per-text metadata. metadatas may be nil or shorter than texts.
	Add(ctx context.Context, texts []string, metadatas []map[string]interface{}) error

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)
}
