// Package notify delivers stored notifications to channels outside the
// process. Delivery is best effort: the stored notification is the record of
// truth and a failed delivery never rolls it back.
package notify

import (
	"context"
	"errors"

	"travel-marketplace/internal/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

type Noop struct{}

func (Noop) Dispatch(context.Context, *models.Notification) error { return nil }

// Multi fans a notification out to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n *models.Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
