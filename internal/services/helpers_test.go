package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n *models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

func (d *recordingDispatcher) forUser(userID string) []*models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*models.Notification
	for _, n := range d.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// tickingClock advances one second per call so ordering by timestamp is
// deterministic.
type tickingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type testEnv struct {
	store         *repository.MemoryStore
	dispatcher    *recordingDispatcher
	clock         *tickingClock
	users         *UserService
	wallet        *WalletService
	notifications *NotificationService
	ledger        *LedgerService
	messaging     *MessagingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	clock := &tickingClock{cur: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	logger := zerolog.Nop()

	notifications := NewNotificationService(store, dispatcher, logger)
	wallet := NewWalletService(store, logger, "eur")
	env := &testEnv{
		store:         store,
		dispatcher:    dispatcher,
		clock:         clock,
		users:         NewUserService(store, logger),
		wallet:        wallet,
		notifications: notifications,
		ledger:        NewLedgerService(store, wallet, notifications, logger, "eur"),
		messaging:     NewMessagingService(store, logger),
	}
	env.users.now = clock.Now
	env.wallet.now = clock.Now
	env.notifications.now = clock.Now
	env.ledger.now = clock.Now
	env.messaging.now = clock.Now
	return env
}

func (e *testEnv) addUser(t *testing.T, name string, role models.UserRole, cities ...string) *models.User {
	t.Helper()
	u := &models.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         name + "@example.com",
		Role:          string(role),
		WalletBalance: decimal.Zero,
		CreatedAt:     e.clock.Now(),
	}
	if role == models.RoleAgency {
		u.AgencyProfile = &models.AgencyProfile{CitiesServed: cities}
	}
	require.NoError(t, e.store.Users().Insert(context.Background(), u))
	return u
}

func (e *testEnv) createRequest(t *testing.T, clientID string) *models.TravelRequest {
	t.Helper()
	req, err := e.ledger.CreateRequest(context.Background(), &models.CreateTravelRequest{
		ClientID:        clientID,
		DepartureCity:   "Paris",
		DestinationCity: "Lyon",
		DepartureDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		TransportType:   models.TransportRail,
	})
	require.NoError(t, err)
	return req
}

func (e *testEnv) createOffer(t *testing.T, requestID, agencyID, price string) *models.TravelOffer {
	t.Helper()
	offer, err := e.ledger.CreateOffer(context.Background(), &models.CreateOfferRequest{
		RequestID:   requestID,
		AgencyID:    agencyID,
		Price:       decimal.RequireFromString(price),
		Description: "Second class, flexible ticket",
	})
	require.NoError(t, err)
	return offer
}

func (e *testEnv) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	u, err := e.store.Users().Get(context.Background(), userID)
	require.NoError(t, err)
	return u.WalletBalance
}

var errBoom = errors.New("boom")
