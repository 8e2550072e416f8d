package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"travel-marketplace/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Users().Insert(ctx, &models.User{ID: "u1", Role: "client", WalletBalance: decimal.Zero}))

	t.Run("failed unit of work leaves nothing behind", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(tx Repositories) error {
			if err := tx.Transactions().Insert(ctx, &models.Transaction{ID: "t1", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: decimal.NewFromInt(10)}); err != nil {
				return err
			}
			if _, err := tx.Users().AdjustBalance(ctx, "u1", decimal.NewFromInt(10)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Transactions().Get(ctx, "t1")
		assert.ErrorIs(t, err, ErrNotFound)
		u, err := store.Users().Get(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, u.WalletBalance.IsZero())
	})

	t.Run("successful unit of work is visible afterwards", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx Repositories) error {
			_, err := tx.Users().AdjustBalance(ctx, "u1", decimal.NewFromInt(25))
			return err
		})
		require.NoError(t, err)

		u, err := store.Users().Get(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, u.WalletBalance.Equal(decimal.NewFromInt(25)))
	})

	t.Run("cancelled context does not run", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		ran := false
		err := store.WithinTx(cctx, func(tx Repositories) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Offers().Insert(ctx, &models.TravelOffer{ID: "o1", RequestID: "r1", Status: models.OfferStatusPending}))

	o, err := store.Offers().Get(ctx, "o1")
	require.NoError(t, err)
	o.Status = models.OfferStatusAccepted

	again, err := store.Offers().Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, again.Status)

	assert.ErrorIs(t, store.Offers().Update(ctx, &models.TravelOffer{ID: "ghost"}), ErrNotFound)
}

func TestMemoryStore_Conversations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Conversations().Insert(ctx, &models.Conversation{ID: "c1", ParticipantIDs: []string{"b", "a"}, UpdatedAt: now}))
	require.NoError(t, store.Conversations().Insert(ctx, &models.Conversation{ID: "c2", ParticipantIDs: []string{"a", "c"}, UpdatedAt: now.Add(time.Minute)}))

	c, err := store.Conversations().FindByParticipants(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	_, err = store.Conversations().FindByParticipants(ctx, "b", "c")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.Conversations().ListByParticipant(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)

	require.NoError(t, store.Messages().Insert(ctx, &models.Message{ID: "m1", ConversationID: "c1", RecipientID: "a", Status: models.MessageStatusSent}))
	require.NoError(t, store.Messages().Insert(ctx, &models.Message{ID: "m2", ConversationID: "c1", RecipientID: "b", Status: models.MessageStatusSent}))

	changed, err := store.Messages().MarkRead(ctx, "c1", "a", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	msgs, err := store.Messages().ListByConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageStatusRead, msgs[0].Status)
	assert.Equal(t, models.MessageStatusSent, msgs[1].Status)
}
