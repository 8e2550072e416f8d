package services

import (
	"context"
	"sort"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/notify"
	"travel-marketplace/internal/repository"

	"github.com/rs/zerolog"
)

type NotificationService struct {
	store      repository.Store
	dispatcher notify.Dispatcher
	validator  *ValidationHelper
	logger     zerolog.Logger
	now        func() time.Time
}

func NewNotificationService(store repository.Store, dispatcher notify.Dispatcher, logger zerolog.Logger) *NotificationService {
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	return &NotificationService{
		store:      store,
		dispatcher: dispatcher,
		validator:  NewValidationHelper(),
		logger:     logger,
		now:        utcNow,
	}
}

// notifyInTx stores a notification as part of an open unit of work. The
// caller hands the result to deliver once the unit of work has committed, so
// nobody is told about a state change that did not happen.
func (s *NotificationService) notifyInTx(ctx context.Context, tx repository.Repositories, in models.NotificationInput) (*models.Notification, error) {
	if err := s.validator.ValidateStruct(&in); err != nil {
		return nil, err
	}

	n := &models.Notification{
		ID:               newID(),
		UserID:           in.UserID,
		Title:            in.Title,
		Message:          in.Message,
		Type:             in.Type,
		IsRead:           false,
		RelatedRequestID: in.RelatedRequestID,
		RelatedOfferID:   in.RelatedOfferID,
		CreatedAt:        s.now(),
	}
	if err := tx.Notifications().Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) deliver(ctx context.Context, notifications ...*models.Notification) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range notifications {
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.logger.Warn().Err(err).
				Str("notification_id", n.ID).
				Str("user_id", n.UserID).
				Msg("Notification delivery failed")
		}
	}
}

func (s *NotificationService) Notify(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	var created *models.Notification
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		n, err := s.notifyInTx(ctx, tx, in)
		created = n
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, created)
	return created, nil
}

// MarkRead is idempotent: marking an already read notification succeeds
// without writing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	n, err := s.store.Notifications().Get(ctx, notificationID)
	if err != nil {
		return nil, notFound(err, "notification", notificationID)
	}
	if n.UserID != userID {
		return nil, apperrors.NotFound("notification", notificationID)
	}
	if n.IsRead {
		return n, nil
	}

	n.IsRead = true
	if err := s.store.Notifications().Update(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("notification_id", notificationID).Msg("Error marking notification read")
		return nil, notFound(err, "notification", notificationID)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	changed, err := s.store.Notifications().MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error marking notifications read")
		return 0, err
	}
	return changed, nil
}

// ListForUser returns the user's notifications, most recent first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	list, err := s.store.Notifications().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := s.store.Notifications().ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}
