package models

import "time"

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

type Notification struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Title            string           `json:"title"`
	Message          string           `json:"message"`
	Type             NotificationType `json:"type"`
	IsRead           bool             `json:"is_read"`
	RelatedRequestID *string          `json:"related_request_id,omitempty"`
	RelatedOfferID   *string          `json:"related_offer_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

type NotificationInput struct {
	UserID           string           `validate:"required"`
	Title            string           `validate:"required,max=200"`
	Message          string           `validate:"required"`
	Type             NotificationType `validate:"required,oneof=info success warning error"`
	RelatedRequestID *string
	RelatedOfferID   *string
}
