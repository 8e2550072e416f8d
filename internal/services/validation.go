package services

import (
	"errors"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationHelper wraps the struct validator shared by every service.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct returns a validation AppError listing each failing field.
func (vh *ValidationHelper) ValidateStruct(s any) error {
	if err := vh.validator.Struct(s); err != nil {
		return apperrors.FromValidator(err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// notFound translates the storage sentinel into the caller-facing error and
// passes every other error through untouched.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return err
}

// isCents reports whether the amount fits the two-decimal money columns.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
