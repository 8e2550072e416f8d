package notify

import (
	"context"
	"fmt"

	"travel-marketplace/internal/models"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type RecipientResolver interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// EmailSender mails each notification to the recipient's account address.
type EmailSender struct {
	from   string
	sender mailSender
	users  RecipientResolver
}

func NewEmailSender(host string, port int, user, password, from string, users RecipientResolver) *EmailSender {
	return &EmailSender{
		from:   from,
		sender: gomail.NewDialer(host, port, user, password),
		users:  users,
	}
}

func (e *EmailSender) Dispatch(ctx context.Context, n *models.Notification) error {
	user, err := e.users.Get(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", n.UserID, err)
	}
	if user.Email == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", n.Message)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification email to %s: %w", user.Email, err)
	}
	return nil
}
