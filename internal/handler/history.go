package handler

import (
	"net/http"

	"coinsage/internal/httputil"
)

// History handles GET /history?conversation_id=...
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter 'conversation_id' is required")
		return
	}

	history := h.assistant.History(conversationID)
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"history":         history,
		"length":          len(history),
	})
}

// ClearHistory handles POST /history/clear.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	if err := h.assistant.ClearHistory(r.Context(), req.ConversationID); err != nil {
		h.logger.Error("failed to clear history",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
