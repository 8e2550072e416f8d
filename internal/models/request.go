package models

import "time"

type TransportType string

const (
	TransportRail   TransportType = "rail"
	TransportFlight TransportType = "flight"
)

type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "pending"
	RequestStatusOffersReceived RequestStatus = "offers_received"
	RequestStatusAccepted       RequestStatus = "accepted"
	RequestStatusCompleted      RequestStatus = "completed"
	RequestStatusCanceled       RequestStatus = "canceled"
)

var requestStatusRank = map[RequestStatus]int{
	RequestStatusPending:        0,
	RequestStatusOffersReceived: 1,
	RequestStatusAccepted:       2,
	RequestStatusCompleted:      3,
}

func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCanceled
}

// CanTransitionTo reports whether moving from s to next keeps the request
// lifecycle monotonic: forward along pending, offers_received, accepted,
// completed, or to canceled from any non-terminal status.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == RequestStatusCanceled {
		return true
	}
	from, ok := requestStatusRank[s]
	if !ok {
		return false
	}
	to, ok := requestStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// AcceptsOffers reports whether agencies may still bid on the request.
func (s RequestStatus) AcceptsOffers() bool {
	return s == RequestStatusPending || s == RequestStatusOffersReceived
}

type TravelClass string

const (
	ClassEconomy  TravelClass = "economy"
	ClassBusiness TravelClass = "business"
	ClassFirst    TravelClass = "first"
)

type TravelPriority string

const (
	PriorityComfort  TravelPriority = "comfort"
	PriorityPrice    TravelPriority = "price"
	PriorityBalanced TravelPriority = "balanced"
)

type TravelPreferences struct {
	TravelClass     TravelClass    `json:"travel_class,omitempty" validate:"omitempty,oneof=economy business first"`
	Priority        TravelPriority `json:"priority,omitempty" validate:"omitempty,oneof=comfort price balanced"`
	DirectOnly      bool           `json:"direct_only,omitempty"`
	FlexibleDates   bool           `json:"flexible_dates,omitempty"`
	ExtraBaggage    bool           `json:"extra_baggage,omitempty"`
	MealIncluded    bool           `json:"meal_included,omitempty"`
	SeatSelection   bool           `json:"seat_selection,omitempty"`
	TravelInsurance bool           `json:"travel_insurance,omitempty"`
}

// PreferencesMatch is an agency's per-preference acknowledgement of a request.
type PreferencesMatch struct {
	TravelClass     bool `json:"travel_class"`
	Priority        bool `json:"priority"`
	DirectOnly      bool `json:"direct_only"`
	FlexibleDates   bool `json:"flexible_dates"`
	ExtraBaggage    bool `json:"extra_baggage"`
	MealIncluded    bool `json:"meal_included"`
	SeatSelection   bool `json:"seat_selection"`
	TravelInsurance bool `json:"travel_insurance"`
}

type TravelRequest struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	DepartureCity   string            `json:"departure_city"`
	DestinationCity string            `json:"destination_city"`
	DepartureDate   time.Time         `json:"departure_date"`
	ReturnDate      *time.Time        `json:"return_date,omitempty"`
	TransportType   TransportType     `json:"transport_type"`
	Preferences     TravelPreferences `json:"preferences"`
	AdditionalNotes string            `json:"additional_notes,omitempty"`
	Status          RequestStatus     `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

type CreateTravelRequest struct {
	ClientID        string            `json:"-" validate:"required"`
	DepartureCity   string            `json:"departure_city" validate:"required,max=100"`
	DestinationCity string            `json:"destination_city" validate:"required,max=100,nefield=DepartureCity"`
	DepartureDate   time.Time         `json:"departure_date" validate:"required"`
	ReturnDate      *time.Time        `json:"return_date,omitempty"`
	TransportType   TransportType     `json:"transport_type" validate:"required,oneof=rail flight"`
	Preferences     TravelPreferences `json:"preferences"`
	AdditionalNotes string            `json:"additional_notes,omitempty" validate:"max=2000"`
}
