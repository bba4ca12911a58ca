package handler

import (
	"log/slog"
	"net/http"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// WalletHandler proxies the upstream wallet balance for the local UI.
type WalletHandler struct {
	wallet domain.BalanceProvider
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet domain.BalanceProvider, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallet: wallet,
		logger: logHandler(logger, "wallet"),
	}
}

// GetBalance fetches the current balance from the upstream service.
// GET /api/wallet
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.wallet.Balance(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "balance fetch failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}
