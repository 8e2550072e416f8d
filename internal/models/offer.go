package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusCompleted OfferStatus = "completed"
)

// HoldsRequest reports whether the offer is the one a request was settled with.
func (s OfferStatus) HoldsRequest() bool {
	return s == OfferStatusAccepted || s == OfferStatusCompleted
}

type TravelOffer struct {
	ID               string            `json:"id"`
	RequestID        string            `json:"request_id"`
	AgencyID         string            `json:"agency_id"`
	AgencyName       string            `json:"agency_name"`
	Price            decimal.Decimal   `json:"price"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description"`
	DepartureTime    *time.Time        `json:"departure_time,omitempty"`
	ReturnTime       *time.Time        `json:"return_time,omitempty"`
	PreferencesMatch *PreferencesMatch `json:"preferences_match,omitempty"`
	Status           OfferStatus       `json:"status"`
	TicketURL        *string           `json:"ticket_url,omitempty"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

type CreateOfferRequest struct {
	RequestID        string            `json:"-" validate:"required"`
	AgencyID         string            `json:"-" validate:"required"`
	AgencyName       string            `json:"-"`
	Price            decimal.Decimal   `json:"price"`
	Currency         string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description      string            `json:"description" validate:"required,max=2000"`
	DepartureTime    *time.Time        `json:"departure_time,omitempty"`
	ReturnTime       *time.Time        `json:"return_time,omitempty"`
	PreferencesMatch *PreferencesMatch `json:"preferences_match,omitempty"`
}

type UploadTicketRequest struct {
	TicketURL string `json:"ticket_url" validate:"required,max=2048"`
}

// AcceptOfferResult carries everything the acceptance cascade produced.
type AcceptOfferResult struct {
	Offer       *TravelOffer   `json:"offer"`
	Request     *TravelRequest `json:"request"`
	Transaction *Transaction   `json:"transaction"`
	RejectedIDs []string       `json:"rejected_offer_ids"`
}
