package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
)

// capturedError carries the provider's "already captured" answer up to
// Capture, which turns it into a success.
type capturedError struct {
	*application.GatewayError
	chargeID string
}

func (e *capturedError) Unwrap() error {
	return e.GatewayError
}

func decodeError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || (errResp.Error.Code == "" && errResp.Error.Type == "") {
		return &application.GatewayError{
			Code:       "unexpected_response",
			Message:    fmt.Sprintf("provider returned status %d: %s", statusCode, truncate(body, 256)),
			StatusCode: statusCode,
		}
	}

	code := errResp.Error.Code
	if code == "" {
		code = errResp.Error.Type
	}

	gwErr := &application.GatewayError{
		Code:       code,
		Message:    errResp.Error.Message,
		StatusCode: statusCode,
	}

	intent := errResp.Error.PaymentIntent
	if code == codeUnexpectedState && intent != nil {
		switch intent.Status {
		case intentStatusSucceeded:
			return &capturedError{GatewayError: gwErr, chargeID: intent.LatestCharge}
		case intentStatusCanceled:
			gwErr.Code = codeHoldCanceled
		}
	}

	return gwErr
}

func alreadyCaptured(err error) (*application.CaptureResult, bool) {
	var captured *capturedError
	if !errors.As(err, &captured) {
		return nil, false
	}
	return &application.CaptureResult{
		Outcome:   application.OutcomeAlreadyCaptured,
		CaptureID: captured.chargeID,
	}, true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
