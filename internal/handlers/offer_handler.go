package handlers

import (
	"net/http"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type OfferHandler struct {
	ledger *services.LedgerService
	logger zerolog.Logger
}

func NewOfferHandler(ledger *services.LedgerService, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{
		ledger: ledger,
		logger: logger,
	}
}

// ListOwn returns the offers the calling agency has submitted.
func (h *OfferHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	offers, err := h.ledger.ListOffersByAgency(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(offers))
}

func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	offer, _, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}

func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	offer, req, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if role != string(models.RoleAdmin) && req.ClientID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "Only the request owner can accept an offer")
		return
	}

	result, err := h.ledger.AcceptOffer(r.Context(), offer.ID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *OfferHandler) UploadTicket(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	var body models.UploadTicketRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	offer, _, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if role != string(models.RoleAdmin) && offer.AgencyID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "Only the offering agency can upload a ticket")
		return
	}

	updated, err := h.ledger.UploadTicket(r.Context(), offer.ID, body.TicketURL)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OfferHandler) PaymentQR(w http.ResponseWriter, r *http.Request) {
	offer, _, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	png, err := h.ledger.PaymentQR(r.Context(), offer.ID, queryInt(r, "size", 256, 1024))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// loadVisible fetches the offer named in the path together with its request
// and checks the caller is the request's client, the offering agency or an
// admin.
func (h *OfferHandler) loadVisible(w http.ResponseWriter, r *http.Request) (*models.TravelOffer, *models.TravelRequest, bool) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return nil, nil, false
	}

	offer, err := h.ledger.GetOffer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return nil, nil, false
	}
	req, err := h.ledger.GetRequest(r.Context(), offer.RequestID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return nil, nil, false
	}

	if role != string(models.RoleAdmin) && req.ClientID != userID && offer.AgencyID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "Access denied")
		return nil, nil, false
	}
	return offer, req, true
}
