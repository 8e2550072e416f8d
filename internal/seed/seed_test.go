package seed

import (
	"context"
	"testing"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"
	"travel-marketplace/internal/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeps() Deps {
	logger := zerolog.Nop()
	store := repository.NewMemoryStore()
	notifications := services.NewNotificationService(store, nil, logger)
	wallet := services.NewWalletService(store, logger, "EUR")
	return Deps{
		Store:     store,
		Users:     services.NewUserService(store, logger),
		Ledger:    services.NewLedgerService(store, wallet, notifications, logger, "EUR"),
		Wallet:    wallet,
		Messaging: services.NewMessagingService(store, logger),
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	d := newDeps()

	require.NoError(t, Run(ctx, d, zerolog.Nop()))

	agencies, err := d.Users.ListAgencies(ctx)
	require.NoError(t, err)
	assert.Len(t, agencies, 3)

	open, err := d.Ledger.ListOpenRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	alice, err := d.Store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "500", alice.WalletBalance.String())

	_, err = d.Users.Authenticate(ctx, &models.LoginRequest{Email: "admin@example.com", Password: DemoPassword})
	assert.NoError(t, err)

	convs, err := d.Messaging.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)

	require.NoError(t, Run(ctx, d, zerolog.Nop()), "second run is a no-op")
	agencies, err = d.Users.ListAgencies(ctx)
	require.NoError(t, err)
	assert.Len(t, agencies, 3)
}
