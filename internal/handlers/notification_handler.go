package handlers

import (
	"net/http"

	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	logger        zerolog.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.ListForUser(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	changed, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"updated": changed})
}
