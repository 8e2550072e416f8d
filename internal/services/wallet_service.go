package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type WalletService struct {
	store           repository.Store
	validator       *ValidationHelper
	logger          zerolog.Logger
	defaultCurrency string
	now             func() time.Time
	userLocks       stripedLock
}

func NewWalletService(store repository.Store, logger zerolog.Logger, defaultCurrency string) *WalletService {
	return &WalletService{
		store:           store,
		validator:       NewValidationHelper(),
		logger:          logger,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             utcNow,
	}
}

func (s *WalletService) getUserLock(userID string) *sync.Mutex {
	return s.userLocks.forKey(userID)
}

// recordInTx appends the transaction and applies it to the balance of the
// transaction's own user. Payments and withdrawals subtract, deposits add;
// the balance is allowed to go negative.
func (s *WalletService) recordInTx(ctx context.Context, tx repository.Repositories, req *models.RecordTransactionRequest) (*models.Transaction, decimal.Decimal, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, decimal.Zero, err
	}
	if !req.Amount.IsPositive() {
		return nil, decimal.Zero, apperrors.Validation("amount must be greater than zero")
	}
	if !isCents(req.Amount) {
		return nil, decimal.Zero, apperrors.Validation("amount must have at most two decimal places")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	t := &models.Transaction{
		ID:             newID(),
		UserID:         req.UserID,
		Type:           req.Type,
		Amount:         req.Amount,
		Currency:       currency,
		Description:    req.Description,
		RelatedOfferID: req.RelatedOfferID,
		CreatedAt:      s.now(),
	}

	if err := tx.Transactions().Insert(ctx, t); err != nil {
		return nil, decimal.Zero, err
	}

	balance, err := tx.Users().AdjustBalance(ctx, t.UserID, t.SignedAmount())
	if err != nil {
		return nil, decimal.Zero, notFound(err, "user", t.UserID)
	}
	return t, balance, nil
}

func (s *WalletService) RecordTransaction(ctx context.Context, req *models.RecordTransactionRequest) (*models.Transaction, error) {
	var (
		t       *models.Transaction
		balance decimal.Decimal
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var err error
		t, balance, err = s.recordInTx(ctx, tx, req)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Error recording transaction")
		return nil, err
	}

	s.logger.Info().
		Str("transaction_id", t.ID).
		Str("user_id", t.UserID).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.String()).
		Str("balance", balance.String()).
		Msg("Transaction recorded")

	return t, nil
}

func (s *WalletService) Deposit(ctx context.Context, req *models.WalletMovementRequest) (*models.Transaction, error) {
	description := req.Description
	if description == "" {
		description = "Wallet deposit"
	}
	return s.RecordTransaction(ctx, &models.RecordTransactionRequest{
		UserID:      req.UserID,
		Type:        models.TransactionTypeDeposit,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: description,
	})
}

// Withdraw refuses to take the wallet below zero. Payments for accepted
// offers do not go through this check.
func (s *WalletService) Withdraw(ctx context.Context, req *models.WalletMovementRequest) (*models.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be greater than zero")
	}

	description := req.Description
	if description == "" {
		description = "Wallet withdrawal"
	}

	lock := s.getUserLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	var t *models.Transaction
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		user, err := tx.Users().GetForUpdate(ctx, req.UserID)
		if err != nil {
			return notFound(err, "user", req.UserID)
		}
		if user.WalletBalance.LessThan(req.Amount) {
			return apperrors.InvalidState("insufficient balance")
		}

		t, _, err = s.recordInTx(ctx, tx, &models.RecordTransactionRequest{
			UserID:      req.UserID,
			Type:        models.TransactionTypeWithdrawal,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", t.ID).Str("user_id", t.UserID).Str("amount", t.Amount.String()).Msg("Withdrawal completed")
	return t, nil
}

func (s *WalletService) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return &models.Balance{UserID: user.ID, Amount: user.WalletBalance, Currency: s.defaultCurrency}, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	list, err := s.store.Transactions().ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error fetching user transactions")
		return nil, err
	}
	return list, nil
}

func (s *WalletService) sumUntil(ctx context.Context, userID string, until *time.Time) (decimal.Decimal, error) {
	list, err := s.store.Transactions().ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range list {
		if until != nil && t.CreatedAt.After(*until) {
			continue
		}
		total = total.Add(t.SignedAmount())
	}
	return total, nil
}

// BalanceAt replays the user's transactions up to and including target.
func (s *WalletService) BalanceAt(ctx context.Context, userID string, target time.Time) (decimal.Decimal, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return decimal.Zero, notFound(err, "user", userID)
	}
	return s.sumUntil(ctx, userID, &target)
}

type Reconciliation struct {
	UserID     string          `json:"user_id"`
	Stored     decimal.Decimal `json:"stored_balance"`
	Calculated decimal.Decimal `json:"calculated_balance"`
	Consistent bool            `json:"consistent"`
}

// Reconcile compares the stored wallet balance with the sum of the user's
// transaction history.
func (s *WalletService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	calculated, err := s.sumUntil(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		UserID:     userID,
		Stored:     balance.Amount,
		Calculated: calculated,
		Consistent: balance.Amount.Equal(calculated),
	}
	if !rec.Consistent {
		s.logger.Warn().
			Str("user_id", userID).
			Str("stored_balance", rec.Stored.String()).
			Str("calculated_balance", rec.Calculated.String()).
			Msg("Balance discrepancy detected")
	}
	return rec, nil
}
