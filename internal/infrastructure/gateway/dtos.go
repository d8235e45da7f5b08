package gateway

import (
	"net/url"
	"strconv"
)

// Intent statuses reported by the provider.
const (
	intentStatusSucceeded = "succeeded"
	intentStatusCanceled  = "canceled"
)

const (
	codeUnexpectedState = "payment_intent_unexpected_state"
	codeHoldCanceled    = "hold_canceled"
)

type captureRequest struct {
	// Omitted amount captures the full hold.
	AmountToCapture *int64
}

func (r captureRequest) form() url.Values {
	form := url.Values{}
	if r.AmountToCapture != nil {
		form.Set("amount_to_capture", strconv.FormatInt(*r.AmountToCapture, 10))
	}
	return form
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	Status       string `json:"status"`
	LatestCharge string `json:"latest_charge"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type errorResponse struct {
	Error providerError `json:"error"`
}

type providerError struct {
	Type          string                 `json:"type"`
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	PaymentIntent *paymentIntentResponse `json:"payment_intent,omitempty"`
}
