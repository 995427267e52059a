package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"coinsage/internal/domain"
	chatModels "coinsage/internal/domain/models/chat"
	"coinsage/internal/domain/repositories"
	chatSvc "coinsage/internal/domain/services/chat"
	"coinsage/internal/service/chat/functions"
	"coinsage/internal/service/retrieval"
)

// Assistant runs the full chat pipeline for a set of conversations:
// retrieval-augmented prompt assembly, budgeted invocation, function
// round trips, and history commits. Safe for concurrent use.
type Assistant struct {
	invoker          *Invoker
	functions        *functions.Registry
	store            retrieval.Store
	repo             repositories.ConversationRepository
	policy           chatModels.BudgetPolicy
	systemPrompt     string
	temperature      float64
	translateQueries bool
	logger           *slog.Logger

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// AssistantConfig carries the collaborators and tuning for NewAssistant.
// Store and Repo are optional; a nil Store disables retrieval and a nil
// Repo disables persistence.
type AssistantConfig struct {
	Invoker      *Invoker
	Functions    *functions.Registry
	Store        retrieval.Store
	Repo         repositories.ConversationRepository
	Policy       chatModels.BudgetPolicy
	SystemPrompt string
	Temperature  float64
	// TranslateQueries enables translating Cyrillic user messages to
	// English before searching the knowledge store.
	TranslateQueries bool
	Logger           *slog.Logger
}

func NewAssistant(cfg AssistantConfig) *Assistant {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		invoker:          cfg.Invoker,
		functions:        cfg.Functions,
		store:            cfg.Store,
		repo:             cfg.Repo,
		policy:           cfg.Policy,
		systemPrompt:     cfg.SystemPrompt,
		temperature:      cfg.Temperature,
		translateQueries: cfg.TranslateQueries,
		logger:           logger,
		conversations:    make(map[string]*Conversation),
	}
}

// ChatResult is the outcome of one completed chat turn.
type ChatResult struct {
	ConversationID string                     `json:"conversation_id"`
	Response       string                     `json:"response"`
	FunctionCalls  []chatModels.FunctionResult `json:"function_calls,omitempty"`
	ContextUsed    bool                       `json:"context_used"`
	Usage          *chatModels.Usage          `json:"usage,omitempty"`
	Model          string                     `json:"model,omitempty"`
}

// Chat runs one conversational turn and commits it to history on success.
// A failed turn leaves the conversation exactly as it was.
func (a *Assistant) Chat(ctx context.Context, conversationID, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &domain.ValidationError{Message: "message must not be empty"}
	}
	conv := a.conversation(conversationID)

	userTurn, contextUsed := a.augmentedUserTurn(ctx, message)
	messages := a.assemble(conv, userTurn)

	opts := InvokeOptions{Temperature: a.temperature}
	if a.functions != nil && a.functions.Len() > 0 {
		opts.Functions = a.functions.Schemas()
	}

	resp, err := a.invoker.Invoke(ctx, messages, a.policy, opts)
	if err != nil {
		return nil, err
	}

	result := &ChatResult{
		ConversationID: conv.ID,
		Response:       resp.Content,
		ContextUsed:    contextUsed,
		Usage:          resp.Usage,
		Model:          resp.Model,
	}

	if hasFunctionCall(resp) {
		answer, fnResult, err := a.resolveFunctionCall(ctx, resp.FunctionCall, messages, a.policy, a.temperature)
		if err != nil {
			return nil, err
		}
		result.Response = answer
		result.FunctionCalls = append(result.FunctionCalls, fnResult)
	}

	a.commit(ctx, conv, message, result.Response)
	return result, nil
}

// StreamChat runs one turn and returns a channel of incremental text
// events. The exchange is committed to history only after the stream
// completes cleanly; an aborted stream commits nothing. Function calling
// is not engaged on the streaming path.
func (a *Assistant) StreamChat(ctx context.Context, conversationID, message string) (<-chan chatSvc.StreamEvent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &domain.ValidationError{Message: "message must not be empty"}
	}
	conv := a.conversation(conversationID)

	userTurn, _ := a.augmentedUserTurn(ctx, message)
	messages := a.assemble(conv, userTurn)

	events, err := a.invoker.InvokeStream(ctx, messages, a.policy, InvokeOptions{Temperature: a.temperature})
	if err != nil {
		return nil, err
	}

	out := make(chan chatSvc.StreamEvent)
	go func() {
		defer close(out)
		var full strings.Builder
		failed := false
		for ev := range events {
			if ev.Err != nil {
				failed = true
			}
			full.WriteString(ev.Text)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if !failed {
			a.commit(ctx, conv, message, full.String())
		}
	}()
	return out, nil
}

// History returns the committed turns of a conversation. Unknown IDs
// yield an empty history.
func (a *Assistant) History(conversationID string) []chatModels.Turn {
	a.mu.RLock()
	conv, ok := a.conversations[conversationID]
	a.mu.RUnlock()
	if !ok {
		return nil
	}
	return conv.History()
}

// ClearHistory drops a conversation's turns and summary, in memory and,
// when persistence is configured, in the repository.
func (a *Assistant) ClearHistory(ctx context.Context, conversationID string) error {
	a.mu.RLock()
	conv, ok := a.conversations[conversationID]
	a.mu.RUnlock()
	if ok {
		conv.Clear()
	}
	if a.repo != nil {
		if err := a.repo.Clear(ctx, conversationID); err != nil {
			return err
		}
	}
	return nil
}

// SystemInfo describes the assistant's current configuration for the
// diagnostics endpoint.
type SystemInfo struct {
	Backend        string                  `json:"backend"`
	Functions      []string                `json:"functions"`
	KnowledgeCount int                     `json:"knowledge_count"`
	Policy         chatModels.BudgetPolicy `json:"policy"`
}

func (a *Assistant) SystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{
		Backend: a.invoker.BackendName(),
		Policy:  a.policy,
	}
	if a.functions != nil {
		info.Functions = a.functions.Names()
	}
	if a.store != nil {
		if n, err := a.store.Count(ctx); err == nil {
			info.KnowledgeCount = n
		}
	}
	return info
}

// AddKnowledge ingests texts into the retrieval store.
func (a *Assistant) AddKnowledge(ctx context.Context, texts []string, metadatas []map[string]interface{}) error {
	if a.store == nil {
		return retrieval.ErrNoStore
	}
	if err := a.store.Add(ctx, texts, metadatas); err != nil {
		return &domain.RetrievalError{Err: err}
	}
	return nil
}

// SearchKnowledge exposes raw retrieval for the search endpoint.
func (a *Assistant) SearchKnowledge(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
	if a.store == nil {
		return nil, retrieval.ErrNoStore
	}
	if k <= 0 {
		k = retrieval.DefaultTopK
	}
	passages, err := a.store.Search(ctx, query, k)
	if err != nil {
		return nil, &domain.RetrievalError{Err: err}
	}
	return passages, nil
}

// conversation returns the tracked conversation for id, creating one on
// first use. An empty id gets a fresh conversation each time.
func (a *Assistant) conversation(id string) *Conversation {
	if id == "" {
		conv := NewConversation()
		a.mu.Lock()
		a.conversations[conv.ID] = conv
		a.mu.Unlock()
		return conv
	}

	a.mu.RLock()
	conv, ok := a.conversations[id]
	a.mu.RUnlock()
	if ok {
		return conv
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if conv, ok := a.conversations[id]; ok {
		return conv
	}
	conv = NewConversation()
	conv.ID = id
	if a.repo != nil {
		if history, summary, err := a.repo.Load(context.Background(), id); err == nil {
			conv.Restore(history, summary)
		}
	}
	a.conversations[id] = conv
	return conv
}

// augmentedUserTurn wraps the user message with retrieved context when a
// store is configured. Retrieval failures degrade to the plain message;
// the turn must not fail because the knowledge base is unavailable.
func (a *Assistant) augmentedUserTurn(ctx context.Context, message string) (chatModels.Turn, bool) {
	turn := chatModels.Turn{Role: chatModels.RoleUser, Content: message}
	if a.store == nil {
		return turn, false
	}
	passages, err := a.store.Search(ctx, a.searchQuery(ctx, message), retrieval.DefaultTopK)
	if err != nil {
		a.logger.Warn("retrieval failed, continuing without context", "error", err)
		return turn, false
	}
	contextBlock := BuildContext(passages, a.policy.RAGContextMaxChars)
	if contextBlock == "" {
		return turn, false
	}
	return InjectContext(turn, contextBlock), true
}

// assemble builds the full message list for one turn: system prompt,
// rolling summary, committed history, then the (possibly augmented)
// user turn. Budget shaping happens later, inside the invoker.
func (a *Assistant) assemble(conv *Conversation, userTurn chatModels.Turn) []chatModels.Turn {
	var messages []chatModels.Turn
	if a.systemPrompt != "" {
		messages = append(messages, chatModels.Turn{Role: chatModels.RoleSystem, Content: a.systemPrompt})
	}
	if summary := conv.Summary(); summary != "" {
		messages = append(messages, SummaryTurn(summary))
	}
	messages = append(messages, conv.History()...)
	return append(messages, userTurn)
}

// commit records a completed exchange in memory and, when configured,
// writes it through to the repository. Persistence failures are logged
// and do not fail the already-successful turn.
func (a *Assistant) commit(ctx context.Context, conv *Conversation, userMessage, response string) {
	conv.Commit(userMessage, response, a.policy.SummaryMaxChars)
	if a.repo == nil {
		return
	}
	user := chatModels.Turn{Role: chatModels.RoleUser, Content: userMessage}
	assistant := chatModels.Turn{Role: chatModels.RoleAssistant, Content: response}
	if err := a.repo.AppendExchange(ctx, conv.ID, user, assistant, conv.Summary()); err != nil {
		a.logger.Warn("failed to persist exchange", "conversation_id", conv.ID, "error", err)
	}
}
