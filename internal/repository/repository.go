// Package repository holds the storage contracts the services depend on and
// the two backends that satisfy them: an in-memory store and MySQL.
package repository

import (
	"context"
	"errors"
	"time"

	"travel-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type RequestRepository interface {
	Get(ctx context.Context, id string) (*models.TravelRequest, error)
	// GetForUpdate reads the request and, on backends that support it, holds a
	// row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.TravelRequest, error)
	ListByClient(ctx context.Context, clientID string) ([]*models.TravelRequest, error)
	ListByStatus(ctx context.Context, statuses ...models.RequestStatus) ([]*models.TravelRequest, error)
	Insert(ctx context.Context, req *models.TravelRequest) error
	Update(ctx context.Context, req *models.TravelRequest) error
}

type OfferRepository interface {
	Get(ctx context.Context, id string) (*models.TravelOffer, error)
	ListByRequest(ctx context.Context, requestID string) ([]*models.TravelOffer, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*models.TravelOffer, error)
	Insert(ctx context.Context, offer *models.TravelOffer) error
	Update(ctx context.Context, offer *models.TravelOffer) error
}

type NotificationRepository interface {
	Get(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
	Insert(ctx context.Context, n *models.Notification) error
	Update(ctx context.Context, n *models.Notification) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type TransactionRepository interface {
	Get(ctx context.Context, id string) (*models.Transaction, error)
	// ListByUser returns newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error)
	ListByRelatedOffer(ctx context.Context, offerID string) ([]*models.Transaction, error)
	Insert(ctx context.Context, t *models.Transaction) error
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	// GetForUpdate reads the user and, on backends that support it, holds a
	// row lock on it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	// AdjustBalance adds delta to the user's wallet balance and returns the result.
	AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error)
}

type ConversationRepository interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	FindByParticipants(ctx context.Context, a, b string) (*models.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error)
	Insert(ctx context.Context, c *models.Conversation) error
	Update(ctx context.Context, c *models.Conversation) error
}

type MessageRepository interface {
	ListByConversation(ctx context.Context, conversationID string) ([]*models.Message, error)
	Insert(ctx context.Context, m *models.Message) error
	// MarkRead flips every unread message in the conversation addressed to
	// recipientID and returns how many changed.
	MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error)
}

type Repositories interface {
	Requests() RequestRepository
	Offers() OfferRepository
	Notifications() NotificationRepository
	Transactions() TransactionRepository
	Users() UserRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
}

// Store is a Repositories that can also run a unit of work atomically. Inside
// fn only the Repositories passed to it may be used.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}

// orderedPair returns the two participant ids in a stable order so that a
// conversation between a and b is stored the same way as one between b and a.
func orderedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
