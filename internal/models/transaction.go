package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	RelatedOfferID *string         `json:"related_offer_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// SignedAmount is the effect of a transaction on its owner's balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeDeposit {
		return t.Amount
	}
	return t.Amount.Neg()
}

type RecordTransactionRequest struct {
	UserID         string          `json:"user_id" validate:"required"`
	Type           TransactionType `json:"type" validate:"required,oneof=payment deposit withdrawal"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description    string          `json:"description" validate:"max=500"`
	RelatedOfferID *string         `json:"related_offer_id,omitempty"`
}

type WalletMovementRequest struct {
	UserID      string          `json:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
}

type Balance struct {
	UserID   string          `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}
