package handler

import (
	"log/slog"
	"net/http"

	"github.com/IOS2004/we-news-sub000/internal/cart"
	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// CartHandler exposes the cart engine over HTTP for the local UI.
type CartHandler struct {
	engine *cart.Engine
	logger *slog.Logger
}

// NewCartHandler creates a CartHandler wrapping the given engine.
func NewCartHandler(engine *cart.Engine, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		engine: engine,
		logger: logHandler(logger, "cart"),
	}
}

// addItemRequest is the body for adding a line to the cart.
type addItemRequest struct {
	GameCategory string   `json:"gameCategory"`
	RoundID      string   `json:"roundId"`
	Selections   []string `json:"selections"`
	Stake        int64    `json:"stake"`
}

// cartResponse bundles the items with the derived totals so the UI never has
// to recompute pricing client-side.
type cartResponse struct {
	Items  []domain.CartItem `json:"items"`
	Totals domain.CartTotals `json:"totals"`
}

// GetCart returns the cart contents and totals.
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cartResponse{
		Items:  h.engine.Items(),
		Totals: h.engine.Totals(),
	})
}

// AddItem validates and adds a stake line to the cart.
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.engine.AddItem(domain.GameCategory(req.GameCategory), req.RoundID, req.Selections, req.Stake)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"itemId": id,
		"totals": h.engine.Totals(),
	})
}

// RemoveItem removes a single line from the cart. Removing an unknown item is
// a no-op so the UI can retry deletes safely.
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.engine.RemoveItem(pathParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"totals": h.engine.Totals()})
}

// ClearCart empties the cart.
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.engine.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Submit sends the whole cart upstream as one atomic batch.
// POST /api/cart/submit
func (h *CartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.engine.Submit(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "submission failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"receipt": receipt})
}
