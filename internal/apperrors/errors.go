package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation_failed"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal_error"
)

// AppError is the error every service returns for a rejected precondition.
// Callers branch on Kind; Message is safe to show to end users.
type AppError struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same Kind, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrConflict     = &AppError{Kind: KindConflict}
	ErrInvalidState = &AppError{Kind: KindInvalidState}
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrForbidden    = &AppError{Kind: KindForbidden}
)

func NotFound(entity, id string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func Conflict(format string, args ...any) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *AppError {
	return &AppError{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *AppError {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// FromValidator converts validator.ValidationErrors into a validation AppError
// with one detail entry per failing field.
func FromValidator(err error) *AppError {
	appErr := &AppError{Kind: KindValidation, Message: "validation failed", Err: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		appErr.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			appErr.Details[fe.Field()] = fmt.Sprintf("failed on '%s' rule", fe.Tag())
		}
	}
	return appErr
}

func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
