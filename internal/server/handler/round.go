package handler

import (
	"log/slog"
	"net/http"

	"github.com/IOS2004/we-news-sub000/internal/domain"
	"github.com/IOS2004/we-news-sub000/internal/projection"
)

// RoundHandler exposes the projected round state over HTTP for the local UI.
type RoundHandler struct {
	proj   *projection.Projection
	logger *slog.Logger
}

// NewRoundHandler creates a RoundHandler backed by the given projection.
func NewRoundHandler(proj *projection.Projection, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{
		proj:   proj,
		logger: logHandler(logger, "rounds"),
	}
}

// roundView is the wire shape for a projected round plus its advisory timer.
type roundView struct {
	Round      domain.Round `json:"round"`
	TimeLeftMs int64        `json:"timeLeftMs,omitempty"`
}

// ListRounds returns the current round for every category that has one.
// GET /api/rounds
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	snapshot := h.proj.Snapshot()

	views := make(map[string]roundView, len(snapshot))
	for category, round := range snapshot {
		v := roundView{Round: round}
		if left, ok := h.proj.TimeLeft(category); ok {
			v.TimeLeftMs = left.Milliseconds()
		}
		views[string(category)] = v
	}

	writeJSON(w, http.StatusOK, map[string]any{"rounds": views})
}

// GetRound returns the current round for one category.
// GET /api/rounds/{category}
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	category := domain.GameCategory(pathParam(r, "category"))
	if !category.Valid() {
		writeDomainError(w, domain.ErrUnknownCategory)
		return
	}

	round, ok := h.proj.Current(category)
	if !ok {
		writeError(w, http.StatusNotFound, "no round for category "+string(category))
		return
	}

	v := roundView{Round: round}
	if left, ok := h.proj.TimeLeft(category); ok {
		v.TimeLeftMs = left.Milliseconds()
	}
	writeJSON(w, http.StatusOK, v)
}
