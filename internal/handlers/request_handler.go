package handlers

import (
	"net/http"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RequestHandler struct {
	ledger *services.LedgerService
	logger zerolog.Logger
}

func NewRequestHandler(ledger *services.LedgerService, logger zerolog.Logger) *RequestHandler {
	return &RequestHandler{
		ledger: ledger,
		logger: logger,
	}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateTravelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientID = userID

	created, err := h.ledger.CreateRequest(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// List returns a client's own requests. Agencies and admins see every request
// still open for offers.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		list []*models.TravelRequest
		err  error
	)
	if role == string(models.RoleClient) {
		list, err = h.ledger.ListRequestsByClient(r.Context(), userID)
	} else {
		list, err = h.ledger.ListOpenRequests(r.Context())
	}
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	req, err := h.ledger.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if role == string(models.RoleClient) && req.ClientID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "Access denied")
		return
	}
	respondWithJSON(w, http.StatusOK, req)
}

// ListOffers shows the request owner every offer; an agency only sees its own.
func (h *RequestHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	requestID := mux.Vars(r)["id"]
	req, err := h.ledger.GetRequest(r.Context(), requestID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if role == string(models.RoleClient) && req.ClientID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "Access denied")
		return
	}

	offers, err := h.ledger.ListOffersByRequest(r.Context(), requestID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if role == string(models.RoleAgency) {
		own := make([]*models.TravelOffer, 0, len(offers))
		for _, o := range offers {
			if o.AgencyID == userID {
				own = append(own, o)
			}
		}
		offers = own
	}
	respondWithJSON(w, http.StatusOK, nonNil(offers))
}

func (h *RequestHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RequestID = mux.Vars(r)["id"]
	req.AgencyID = userID

	offer, err := h.ledger.CreateOffer(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, offer)
}
