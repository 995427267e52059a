// Package handler exposes the chat pipeline over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"coinsage/internal/service/chat"
)

// Handler serves the chat API.
type Handler struct {
	assistant *chat.Assistant
	logger    *slog.Logger
}

// New creates an API handler around the assistant.
func New(assistant *chat.Assistant, logger *slog.Logger) *Handler {
	return &Handler{
		assistant: assistant,
		logger:    logger,
	}
}

// Routes registers all endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", h.Chat)
	mux.HandleFunc("POST /chat/stream", h.ChatStream)
	mux.HandleFunc("POST /related_questions", h.RelatedQuestions)
	mux.HandleFunc("POST /knowledge", h.AddKnowledge)
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /history", h.History)
	mux.HandleFunc("POST /history/clear", h.ClearHistory)
	mux.HandleFunc("GET /system_info", h.SystemInfo)
	mux.HandleFunc("GET /health", h.Health)

	return mux
}
