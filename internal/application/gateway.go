package application

import (
	"errors"
	"fmt"
	"net/http"
)

type CaptureOutcome string

const (
	OutcomeCaptured        CaptureOutcome = "captured"
	OutcomeAlreadyCaptured CaptureOutcome = "already_captured"
)

// CaptureResult is a successful capture. A hold the provider had already
// captured is success too, reported as OutcomeAlreadyCaptured.
type CaptureResult struct {
	Outcome   CaptureOutcome
	CaptureID string
}

// CaptureIdempotencyKey is deterministic per hold so the sweep and the
// delivery listener collapse onto one provider-side capture.
func CaptureIdempotencyKey(holdReference string) string {
	return "capture:" + holdReference
}

// ErrGatewayNotConfigured means the provider credentials are missing.
var ErrGatewayNotConfigured = errors.New("payment gateway credentials are not configured")

// GatewayError is a normalized provider failure.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// IsRetryable is true for provider-side and throttling failures.
func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}
