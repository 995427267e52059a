package handler

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"coinsage/internal/httputil"
	"coinsage/internal/service/retrieval"
)

// KnowledgeRequest is the body of POST /knowledge.
type KnowledgeRequest struct {
	Texts     []string                 `json:"texts"`
	Metadatas []map[string]interface{} `json:"metadatas,omitempty"`
}

// Validate checks the request body.
func (r KnowledgeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Texts, validation.Required, validation.Length(1, 1000)),
	)
}

// AddKnowledge handles POST /knowledge.
func (h *Handler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req KnowledgeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.assistant.AddKnowledge(r.Context(), req.Texts, req.Metadatas); err != nil {
		if errors.Is(err, retrieval.ErrNoStore) {
			httputil.RespondError(w, http.StatusNotFound, "knowledge base is not configured")
			return
		}
		h.logger.Error("knowledge ingestion failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to add knowledge")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"added":  len(req.Texts),
	})
}

// Search handles GET /search?q=...&k=3.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "query parameter 'k' must be a positive integer")
			return
		}
		k = parsed
	}

	passages, err := h.assistant.SearchKnowledge(r.Context(), query, k)
	if err != nil {
		if errors.Is(err, retrieval.ErrNoStore) {
			httputil.RespondError(w, http.StatusNotFound, "knowledge base is not configured")
			return
		}
		h.logger.Error("knowledge search failed", "query", query, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": passages,
	})
}
