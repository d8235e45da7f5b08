package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// ErrorCategory represents the nature of an error for retry and logging purposes
type ErrorCategory string

const (
	CategoryConfiguration  ErrorCategory = "CONFIGURATION"
	CategoryAuth           ErrorCategory = "AUTH"
	CategoryNotFound       ErrorCategory = "NOT_FOUND"
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrGatewayNotConfigured) {
		return CategoryConfiguration
	}

	// Context Errors (Transient - network/timeout issues)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrNotOrderBuyer) {
		return CategoryAuth
	}

	if errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrMissingHoldReference) {
		return CategoryNotFound
	}

	if errors.Is(err, domain.ErrAlreadySettled) ||
		errors.Is(err, domain.ErrOrderFrozen) ||
		errors.Is(err, domain.ErrCaptureNotDue) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrInvalidReleaseTime) {
		return CategoryBusinessRule
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeUnauthenticated, ErrCodeUnauthorized:
			return CategoryAuth
		case ErrCodeConfiguration:
			return CategoryConfiguration
		case ErrCodeOrderNotFound:
			return CategoryNotFound
		case ErrCodeInvalidInput, ErrCodeInvalidState:
			return CategoryBusinessRule
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeTimeout, ErrCodeRateLimited:
			return CategoryTransient
		}
	}

	// Gateway Errors (External API)
	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.IsRetryable() {
			return CategoryTransient
		}

		switch gwErr.Code {
		case "api_connection_error", "rate_limit", "lock_timeout":
			return CategoryTransient
		case "authentication_error", "permission_error":
			return CategoryConfiguration
		case "resource_missing":
			return CategoryNotFound
		default:
			return CategoryPermanent
		}
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code. A caller who is not
// the buyer gets the same 404 as a missing order.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, ErrGatewayNotConfigured):
		return http.StatusInternalServerError

	case errors.Is(err, domain.ErrMissingRequiredField):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNotOrderBuyer),
		errors.Is(err, domain.ErrMissingHoldReference):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrOrderFrozen),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCaptureNotDue),
		errors.Is(err, domain.ErrInvalidReleaseTime):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	if _, ok := IsGatewayError(err); ok {
		return http.StatusBadGateway
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case errors.Is(err, ErrGatewayNotConfigured):
		return ErrCodeConfiguration
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNotOrderBuyer):
		return ErrCodeOrderNotFound
	case errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrInvalidTransition):
		return ErrCodeInvalidState
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if gwErr, ok := IsGatewayError(err); ok {
		return ErrCodeGateway + "_" + strings.ToUpper(gwErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}

// ToErrorMessage is the message safe to show a caller. Infrastructure detail
// and buyer ownership never leak.
func ToErrorMessage(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}

	if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrNotOrderBuyer) {
		return "Order not found"
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "Request timed out"
	}

	return "An internal error occurred"
}
