package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint. The channel status func is
// optional; when set the response includes the push channel's current state.
type HealthHandler struct {
	channelStatus func() string
	logger        *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
// channelStatus may be nil.
func NewHealthHandler(channelStatus func() string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{channelStatus: channelStatus, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.channelStatus != nil {
		body["channel"] = h.channelStatus()
	}
	writeJSON(w, http.StatusOK, body)
}
