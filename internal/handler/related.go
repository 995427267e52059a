package handler

import (
	"net/http"

	"coinsage/internal/httputil"
)

// RelatedQuestions handles POST /related_questions. An empty or unknown
// conversation yields the stock suggestions rather than an error.
func (h *Handler) RelatedQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions, err := h.assistant.RelatedQuestions(r.Context(), req.ConversationID)
	if err != nil {
		h.logger.Error("failed to generate related questions",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to generate related questions")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"questions":       questions,
	})
}
