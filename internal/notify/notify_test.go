package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"travel-marketplace/internal/models"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func sampleNotification() *models.Notification {
	requestID := "req-1"
	return &models.Notification{
		ID:               "n-1",
		UserID:           "user-1",
		Title:            "New offer received",
		Message:          "Rail & Go offered 89.90 EUR",
		Type:             models.NotificationInfo,
		RelatedRequestID: &requestID,
		CreatedAt:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisPublisher_Dispatch(t *testing.T) {
	ctx := context.Background()
	n := sampleNotification()
	payload, err := json.Marshal(n)
	require.NoError(t, err)

	t.Run("publishes on the user's channel", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectPublish("notifications:user-1", string(payload)).SetVal(1)

		err := NewRedisPublisher(client).Dispatch(ctx, n)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces publish errors", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectPublish(Channel(n.UserID), string(payload)).SetErr(errors.New("connection refused"))

		err := NewRedisPublisher(client).Dispatch(ctx, n)
		assert.ErrorContains(t, err, "connection refused")
	})
}

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type fakeUsers map[string]*models.User

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func TestEmailSender_Dispatch(t *testing.T) {
	ctx := context.Background()
	users := fakeUsers{
		"user-1": {ID: "user-1", Email: "alice@example.com"},
		"user-2": {ID: "user-2"},
	}

	t.Run("mails the recipient", func(t *testing.T) {
		mailer := &fakeMailer{}
		sender := &EmailSender{from: "noreply@example.com", sender: mailer, users: users}

		require.NoError(t, sender.Dispatch(ctx, sampleNotification()))
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, []string{"alice@example.com"}, mailer.sent[0].GetHeader("To"))
		assert.Equal(t, []string{"New offer received"}, mailer.sent[0].GetHeader("Subject"))
	})

	t.Run("skips users without address", func(t *testing.T) {
		mailer := &fakeMailer{}
		sender := &EmailSender{from: "noreply@example.com", sender: mailer, users: users}

		n := sampleNotification()
		n.UserID = "user-2"
		require.NoError(t, sender.Dispatch(ctx, n))
		assert.Empty(t, mailer.sent)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		sender := &EmailSender{from: "noreply@example.com", sender: &fakeMailer{}, users: users}
		n := sampleNotification()
		n.UserID = "ghost"
		assert.Error(t, sender.Dispatch(ctx, n))
	})
}

type stubDispatcher struct {
	calls int
	err   error
}

func (s *stubDispatcher) Dispatch(context.Context, *models.Notification) error {
	s.calls++
	return s.err
}

func TestMulti_Dispatch(t *testing.T) {
	failing := &stubDispatcher{err: errors.New("smtp down")}
	ok := &stubDispatcher{}

	err := Multi{failing, ok, Noop{}}.Dispatch(context.Background(), sampleNotification())
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)

	assert.NoError(t, Multi{}.Dispatch(context.Background(), sampleNotification()))
}
