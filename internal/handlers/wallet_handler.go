package handlers

import (
	"context"
	"net/http"
	"time"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/rs/zerolog"
)

type WalletHandler struct {
	wallet *services.WalletService
	logger zerolog.Logger
}

func NewWalletHandler(wallet *services.WalletService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		wallet: wallet,
		logger: logger,
	}
}

// targetUser is the caller, or for admins the ?user_id they ask about.
func targetUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return "", false
	}
	if role == string(models.RoleAdmin) {
		if other := r.URL.Query().Get("user_id"); other != "" {
			return other, true
		}
	}
	return userID, true
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balance)
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50, 500)
	offset := queryInt(r, "offset", 0, 0)

	list, err := h.wallet.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": nonNil(list),
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *WalletHandler) GetBalanceAtTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}

	timestampStr := r.URL.Query().Get("timestamp")
	if timestampStr == "" {
		respondWithError(w, http.StatusBadRequest, "missing_timestamp", "timestamp parameter is required")
		return
	}
	timestamp, err := time.Parse(time.RFC3339, timestampStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_timestamp", "Invalid timestamp format. Use RFC3339 format")
		return
	}

	amount, err := h.wallet.BalanceAt(r.Context(), userID, timestamp)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"balance":   amount,
		"timestamp": timestamp.UTC(),
	})
}

func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}

	rec, err := h.wallet.Reconcile(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.wallet.Deposit)
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.wallet.Withdraw)
}

func (h *WalletHandler) move(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req *models.WalletMovementRequest) (*models.Transaction, error)) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}

	var req models.WalletMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userID

	t, err := op(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}
