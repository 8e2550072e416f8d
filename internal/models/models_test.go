package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RequestStatus
		want     bool
	}{
		{RequestStatusPending, RequestStatusOffersReceived, true},
		{RequestStatusPending, RequestStatusAccepted, true},
		{RequestStatusOffersReceived, RequestStatusAccepted, true},
		{RequestStatusAccepted, RequestStatusCompleted, true},
		{RequestStatusAccepted, RequestStatusOffersReceived, false},
		{RequestStatusAccepted, RequestStatusAccepted, false},
		{RequestStatusCompleted, RequestStatusCanceled, false},
		{RequestStatusOffersReceived, RequestStatusCanceled, true},
		{RequestStatusCanceled, RequestStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, RequestStatusOffersReceived.AcceptsOffers())
	assert.False(t, RequestStatusAccepted.AcceptsOffers())
}

func TestOfferStatus_HoldsRequest(t *testing.T) {
	assert.True(t, OfferStatusAccepted.HoldsRequest())
	assert.True(t, OfferStatusCompleted.HoldsRequest())
	assert.False(t, OfferStatusPending.HoldsRequest())
	assert.False(t, OfferStatusRejected.HoldsRequest())
}

func TestTransaction_SignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	assert.True(t, (&Transaction{Type: TransactionTypeDeposit, Amount: amount}).SignedAmount().Equal(amount))
	assert.True(t, (&Transaction{Type: TransactionTypePayment, Amount: amount}).SignedAmount().Equal(amount.Neg()))
	assert.True(t, (&Transaction{Type: TransactionTypeWithdrawal, Amount: amount}).SignedAmount().Equal(amount.Neg()))
}

func TestAgencyProfile_Serves(t *testing.T) {
	var none *AgencyProfile
	assert.True(t, none.Serves("Paris", "Lyon"))
	assert.True(t, (&AgencyProfile{}).Serves("Paris", "Lyon"))

	p := &AgencyProfile{CitiesServed: []string{"paris"}}
	assert.True(t, p.Serves("Paris", "Rome"))
	assert.True(t, p.Serves("Rome", "PARIS"))
	assert.False(t, p.Serves("Rome", "Milan"))
}

func TestConversation_HasParticipant(t *testing.T) {
	c := &Conversation{ParticipantIDs: []string{"a", "b"}}
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("c"))
}
