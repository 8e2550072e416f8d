package services

import (
	"context"
	"errors"
	"testing"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notice(userID, title string) models.NotificationInput {
	return models.NotificationInput{
		UserID:  userID,
		Title:   title,
		Message: title + " body",
		Type:    models.NotificationInfo,
	}
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", models.RoleClient)
	bob := env.addUser(t, "bob", models.RoleClient)

	first, err := env.notifications.Notify(ctx, notice(alice.ID, "first"))
	require.NoError(t, err)
	second, err := env.notifications.Notify(ctx, notice(alice.ID, "second"))
	require.NoError(t, err)
	_, err = env.notifications.Notify(ctx, notice(bob.ID, "for bob"))
	require.NoError(t, err)

	t.Run("lists newest first and counts unread", func(t *testing.T) {
		list, err := env.notifications.ListForUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		count, err := env.notifications.UnreadCount(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		n, err := env.notifications.MarkRead(ctx, alice.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, n.IsRead)

		n, err = env.notifications.MarkRead(ctx, alice.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, n.IsRead)

		count, err := env.notifications.UnreadCount(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("other users cannot touch a notification", func(t *testing.T) {
		_, err := env.notifications.MarkRead(ctx, bob.ID, second.ID)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))

		_, err = env.notifications.MarkRead(ctx, alice.ID, "missing")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("mark all read only affects the caller", func(t *testing.T) {
		changed, err := env.notifications.MarkAllRead(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		count, err := env.notifications.UnreadCount(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = env.notifications.UnreadCount(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		in := notice(alice.ID, "bad")
		in.Type = "urgent"
		_, err := env.notifications.Notify(ctx, in)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})
}

func TestNotificationService_DeliveryFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", models.RoleClient)
	env.dispatcher.err = errBoom

	n, err := env.notifications.Notify(ctx, notice(alice.ID, "hello"))
	require.NoError(t, err)

	stored, err := env.store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Title)
	assert.Equal(t, 1, env.dispatcher.count())
}
