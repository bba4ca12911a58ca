package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to an HTTP status and sends it.
// Validation failures are 400s, state conflicts (round closed, stale items)
// are 409s, and anything unrecognized is a 502 since it came from upstream.
func writeDomainError(w http.ResponseWriter, err error) {
	var stale *domain.StaleItemsError
	var rejected *domain.SubmissionRejectedError

	switch {
	case errors.As(err, &stale):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   stale.Error(),
			"itemIds": stale.ItemIDs,
		})
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   rejected.Error(),
			"itemIds": rejected.ItemIDs,
		})
	case errors.Is(err, domain.ErrRoundNotOpen),
		errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrUnknownOption),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrTooManySelections),
		errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// decodeJSON parses the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
