package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	chatSvc "coinsage/internal/domain/services/chat"
	"coinsage/internal/service/retrieval"
)

// recordingStore captures the queries it was searched with.
type recordingStore struct {
	queries []string
}

func (s *recordingStore) Search(_ context.Context, query string, _ int) ([]retrieval.Passage, error) {
	s.queries = append(s.queries, query)
	return nil, nil
}
func (s *recordingStore) Add(context.Context, []string, []map[string]interface{}) error { return nil }
func (s *recordingStore) Count(context.Context) (int, error)                            { return 0, nil }

func TestContainsCyrillic(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Анализ биткоина", true},
		{"bitcoin analysis", false},
		{"BTC к доллару", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := containsCyrillic(tc.in); got != tc.want {
			t.Errorf("containsCyrillic(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAssistant_CyrillicQueryTranslatedBeforeSearch(t *testing.T) {
	backend := &fakeBackend{responses: []fakeReply{
		{resp: &chatSvc.SendResponse{Content: "bitcoin staking analysis"}},
		{resp: &chatSvc.SendResponse{Content: "Стейкинг выглядит привлекательно."}},
	}}
	store := &recordingStore{}
	a := newTestAssistant(t, backend, func(cfg *AssistantConfig) {
		cfg.Store = store
		cfg.TranslateQueries = true
	})

	result, err := a.Chat(context.Background(), "conv-1", "Расскажи про стейкинг биткоина")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Response != "Стейкинг выглядит привлекательно." {
		t.Errorf("Response = %q", result.Response)
	}

	if len(store.queries) != 1 || store.queries[0] != "bitcoin staking analysis" {
		t.Errorf("search queries = %v, want the translated query", store.queries)
	}

	// First backend call is the translation prompt, outside the conversation.
	if len(backend.calls) != 2 {
		t.Fatalf("backend calls = %d, want 2", len(backend.calls))
	}
	first := backend.calls[0].Messages
	if len(first) != 1 || !strings.Contains(first[0].Content, "Расскажи про стейкинг биткоина") {
		t.Errorf("translation request = %+v", first)
	}
	if !strings.Contains(first[0].Content, "from Russian to English") {
		t.Errorf("translation prompt missing instruction: %q", first[0].Content)
	}

	// The conversation itself still carries the original message.
	second := backend.calls[1].Messages
	last := second[len(second)-1]
	if last.Content != "Расскажи про стейкинг биткоина" {
		t.Errorf("user turn = %q, want original message", last.Content)
	}
	history := a.History("conv-1")
	if len(history) != 2 || history[0].Content != "Расскажи про стейкинг биткоина" {
		t.Errorf("committed history = %+v", history)
	}
}

func TestAssistant_TranslationFailureFallsBackToOriginal(t *testing.T) {
	backend := &fakeBackend{responses: []fakeReply{
		{err: errors.New("backend offline")},
		{resp: &chatSvc.SendResponse{Content: "Отвечаю без перевода."}},
	}}
	store := &recordingStore{}
	a := newTestAssistant(t, backend, func(cfg *AssistantConfig) {
		cfg.Store = store
		cfg.TranslateQueries = true
	})

	result, err := a.Chat(context.Background(), "conv-1", "Что такое стейкинг?")
	if err != nil {
		t.Fatalf("Chat() error = %v, want degraded success", err)
	}
	if result.Response != "Отвечаю без перевода." {
		t.Errorf("Response = %q", result.Response)
	}
	if len(store.queries) != 1 || store.queries[0] != "Что такое стейкинг?" {
		t.Errorf("search queries = %v, want the original message", store.queries)
	}
}

func TestAssistant_LatinQueriesNotTranslated(t *testing.T) {
	backend := &fakeBackend{responses: []fakeReply{
		{resp: &chatSvc.SendResponse{Content: "Staking locks coins."}},
	}}
	store := &recordingStore{}
	a := newTestAssistant(t, backend, func(cfg *AssistantConfig) {
		cfg.Store = store
		cfg.TranslateQueries = true
	})

	if _, err := a.Chat(context.Background(), "conv-1", "what is staking"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if len(backend.calls) != 1 {
		t.Errorf("backend calls = %d, want 1 (no translation round)", len(backend.calls))
	}
	if len(store.queries) != 1 || store.queries[0] != "what is staking" {
		t.Errorf("search queries = %v", store.queries)
	}
}
