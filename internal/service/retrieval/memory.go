package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a keyword-overlap retrieval store. It scores passages by
// how many query terms they contain, weighted by term frequency. It is not
// a substitute for vector search, but it gives development setups and tests
// a real Store without external services.
type MemoryStore struct {
	mu        sync.RWMutex
	passages  []Passage
	chunkSize int
}

// NewMemoryStore creates an empty in-memory store with the default chunk
// size.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunkSize: DefaultChunkSize}
}

// Add splits each text into chunks and stores them. The metadata at index
// i, when present, is attached to every chunk of texts[i].
func (s *MemoryStore) Add(_ context.Context, texts []string, metadatas []map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, text := range texts {
		var meta map[string]interface{}
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		for _, chunk := range SplitText(text, s.chunkSize) {
			s.passages = append(s.passages, Passage{Text: chunk, Metadata: meta})
		}
	}
	return nil
}

// Search ranks stored passages by query-term overlap and returns the top k.
func (s *MemoryStore) Search(_ context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Passage, 0, len(s.passages))
	for _, p := range s.passages {
		score := overlapScore(terms, p.Text)
		if score <= 0 {
			continue
		}
		p.Score = score
		scored = append(scored, p)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of stored passages.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && !('а' <= r && r <= 'я') && r != 'ё'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func overlapScore(terms []string, text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, term := range terms {
		score += float64(strings.Count(lower, term))
	}
	return score
}
