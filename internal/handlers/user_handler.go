package handlers

import (
	"net/http"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// ListAgencies lists every agency, or with ?from=&to= only the ones serving
// that route.
func (h *UserHandler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var (
		list []*models.User
		err  error
	)
	if from != "" || to != "" {
		list, err = h.userService.EligibleAgencies(r.Context(), from, to)
	} else {
		list, err = h.userService.ListAgencies(r.Context())
	}
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}
