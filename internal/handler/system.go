package handler

import (
	"net/http"

	"coinsage/internal/httputil"
)

// SystemInfo handles GET /system_info.
func (h *Handler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.assistant.SystemInfo(r.Context()))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
