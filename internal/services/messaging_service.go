package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"

	"github.com/rs/zerolog"
)

const lastMessagePreviewLen = 200

type MessagingService struct {
	store     repository.Store
	validator *ValidationHelper
	logger    zerolog.Logger
	now       func() time.Time
}

func NewMessagingService(store repository.Store, logger zerolog.Logger) *MessagingService {
	return &MessagingService{
		store:     store,
		validator: NewValidationHelper(),
		logger:    logger,
		now:       utcNow,
	}
}

// StartConversation returns the conversation between a and b, creating it on
// first use. The pair is unordered.
func (s *MessagingService) StartConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	if a == "" || b == "" {
		return nil, apperrors.Validation("both participants are required")
	}
	if a == b {
		return nil, apperrors.Validation("cannot start a conversation with yourself")
	}
	for _, id := range []string{a, b} {
		if _, err := s.store.Users().Get(ctx, id); err != nil {
			return nil, notFound(err, "user", id)
		}
	}

	var (
		conv    *models.Conversation
		created bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		existing, err := tx.Conversations().FindByParticipants(ctx, a, b)
		if err == nil {
			conv = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		conv = &models.Conversation{
			ID:             newID(),
			ParticipantIDs: []string{a, b},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		created = true
		return tx.Conversations().Insert(ctx, conv)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the race to a concurrent start for the same pair.
		conv, err = s.store.Conversations().FindByParticipants(ctx, a, b)
		created = false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("participant_a", a).Str("participant_b", b).Msg("Error starting conversation")
		return nil, err
	}

	if created {
		s.logger.Info().Str("conversation_id", conv.ID).Msg("Conversation started")
	}
	return conv, nil
}

// GetConversation returns the conversation if userID takes part in it.
func (s *MessagingService) GetConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.store.Conversations().Get(ctx, conversationID)
	if err != nil {
		return nil, notFound(err, "conversation", conversationID)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

func (s *MessagingService) SendMessage(ctx context.Context, req *models.SendMessageRequest) (*models.Message, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var msg *models.Message
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		conv, err := tx.Conversations().Get(ctx, req.ConversationID)
		if err != nil {
			return notFound(err, "conversation", req.ConversationID)
		}
		if !conv.HasParticipant(req.SenderID) {
			return apperrors.Forbidden("not a participant of this conversation")
		}
		if !conv.HasParticipant(req.RecipientID) {
			return apperrors.Validation("recipient is not a participant of this conversation")
		}

		now := s.now()
		msg = &models.Message{
			ID:             newID(),
			ConversationID: conv.ID,
			SenderID:       req.SenderID,
			RecipientID:    req.RecipientID,
			Content:        req.Content,
			AttachmentURL:  req.AttachmentURL,
			Status:         models.MessageStatusSent,
			CreatedAt:      now,
		}
		if err := tx.Messages().Insert(ctx, msg); err != nil {
			return err
		}

		preview := msg.Content
		if r := []rune(preview); len(r) > lastMessagePreviewLen {
			preview = string(r[:lastMessagePreviewLen])
		}
		conv.LastMessageID = &msg.ID
		conv.LastMessageContent = preview
		conv.LastMessageTime = &now
		conv.UnreadCount++
		conv.UpdatedAt = now
		return tx.Conversations().Update(ctx, conv)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", req.ConversationID).Str("sender_id", req.SenderID).Msg("Error sending message")
		return nil, err
	}

	s.logger.Debug().Str("message_id", msg.ID).Str("conversation_id", msg.ConversationID).Msg("Message sent")
	return msg, nil
}

// MarkMessagesAsRead marks every message addressed to userID as read and
// resets the conversation's unread counter.
func (s *MessagingService) MarkMessagesAsRead(ctx context.Context, conversationID, userID string) (int64, error) {
	var changed int64
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		conv, err := tx.Conversations().Get(ctx, conversationID)
		if err != nil {
			return notFound(err, "conversation", conversationID)
		}
		if !conv.HasParticipant(userID) {
			return apperrors.Forbidden("not a participant of this conversation")
		}

		changed, err = tx.Messages().MarkRead(ctx, conversationID, userID, s.now())
		if err != nil {
			return err
		}

		conv.UnreadCount = 0
		return tx.Conversations().Update(ctx, conv)
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return s.store.Conversations().ListByParticipant(ctx, userID)
}

// ListMessages returns the conversation's messages in the order they were sent.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	if _, err := s.store.Conversations().Get(ctx, conversationID); err != nil {
		return nil, notFound(err, "conversation", conversationID)
	}
	return s.store.Messages().ListByConversation(ctx, conversationID)
}
