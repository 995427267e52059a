package handler

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"coinsage/internal/domain"
	"coinsage/internal/handler/sse"
	"coinsage/internal/httputil"
)

const keepAliveInterval = 10 * time.Second

// ChatRequest is the body of POST /chat and POST /chat/stream.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Validate checks the request body.
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 100000)),
	)
}

// chatFailure is the structured result returned when a turn fails. The
// chat endpoint never surfaces a raw error to the client; it answers
// with an apologetic message and an error field instead.
type chatFailure struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Response       string `json:"response"`
	Error          string `json:"error"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.assistant.Chat(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		httputil.RespondJSON(w, http.StatusOK, chatFailure{
			ConversationID: req.ConversationID,
			Response:       apologyFor(err),
			Error:          err.Error(),
		})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// apologyFor picks the user-facing message for a failed turn.
func apologyFor(err error) string {
	if errors.Is(err, domain.ErrCapacity) {
		return "I'm handling a lot of requests right now and couldn't answer in time. Please try again in a moment."
	}
	return "Sorry, something went wrong while answering that. Please try again."
}

// streamChunk is one data event on the streaming endpoint.
type streamChunk struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ChatStream handles POST /chat/stream with server-sent events.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.assistant.StreamChat(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.logger.Error("failed to open stream",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		status := http.StatusInternalServerError
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.StatusCode()
		}
		httputil.RespondError(w, status, apologyFor(err))
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = writer.WriteDone()
				return
			}
			if ev.Err != nil {
				h.logger.Warn("stream aborted",
					"conversation_id", req.ConversationID,
					"error", ev.Err,
				)
				_ = writer.WriteData(streamChunk{Error: apologyFor(ev.Err)})
				return
			}
			if ev.Text == "" {
				continue
			}
			if err := writer.WriteData(streamChunk{Text: ev.Text}); err != nil {
				h.logger.Warn("client disconnected mid-stream",
					"conversation_id", req.ConversationID,
					"error", err,
				)
				return
			}

		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
