package handlers

import (
	"net/http"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type MessageHandler struct {
	messaging *services.MessagingService
	logger    zerolog.Logger
}

func NewMessageHandler(messaging *services.MessagingService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messaging: messaging,
		logger:    logger,
	}
}

func (h *MessageHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.StartConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.messaging.StartConversation(r.Context(), userID, req.ParticipantID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, conv)
}

func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.messaging.ListConversations(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	conv, err := h.messaging.GetConversation(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.messaging.ListMessages(r.Context(), conv.ID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// SendMessage posts into a conversation. The recipient defaults to the other
// participant when the body leaves it out.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.messaging.GetConversation(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if req.RecipientID == "" {
		for _, id := range conv.ParticipantIDs {
			if id != userID {
				req.RecipientID = id
			}
		}
	}
	req.ConversationID = conv.ID
	req.SenderID = userID

	msg, err := h.messaging.SendMessage(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}

	changed, err := h.messaging.MarkMessagesAsRead(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"updated": changed})
}
