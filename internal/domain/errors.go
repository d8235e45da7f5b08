package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies of a sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeNotOrderBuyer        = "NOT_ORDER_BUYER"
	ErrCodeMissingHoldReference = "MISSING_HOLD_REFERENCE"
	ErrCodeAlreadySettled       = "ALREADY_SETTLED"
	ErrCodeOrderFrozen          = "ORDER_FROZEN"
	ErrCodeCaptureNotDue        = "CAPTURE_NOT_DUE"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidReleaseTime   = "INVALID_RELEASE_TIME"
)

var (
	ErrInvalidTransition    = &DomainError{Code: ErrCodeInvalidTransition, Message: "invalid state transition"}
	ErrOrderNotFound        = &DomainError{Code: ErrCodeOrderNotFound, Message: "order not found"}
	ErrNotOrderBuyer        = &DomainError{Code: ErrCodeNotOrderBuyer, Message: "caller is not the buyer of this order"}
	ErrMissingHoldReference = &DomainError{Code: ErrCodeMissingHoldReference, Message: "order has no payment hold reference"}
	ErrAlreadySettled       = &DomainError{Code: ErrCodeAlreadySettled, Message: "order is already settled"}
	ErrOrderFrozen          = &DomainError{Code: ErrCodeOrderFrozen, Message: "order is frozen by a protest"}
	ErrCaptureNotDue        = &DomainError{Code: ErrCodeCaptureNotDue, Message: "capture deadline has not passed"}
	ErrMissingRequiredField = &DomainError{Code: ErrCodeMissingRequiredField, Message: "missing required field"}
	ErrInvalidReleaseTime   = &DomainError{Code: ErrCodeInvalidReleaseTime, Message: "release time precedes order creation"}
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidTransitionError(from, to OrderState) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewOrderNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order %s not found", id),
	}
}

func NewMissingHoldReferenceError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingHoldReference,
		Message: fmt.Sprintf("order %s has no payment hold reference", id),
	}
}

func NewAlreadySettledError(id string, state OrderState) *DomainError {
	return &DomainError{
		Code:    ErrCodeAlreadySettled,
		Message: fmt.Sprintf("order %s is already %s", id, state),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
