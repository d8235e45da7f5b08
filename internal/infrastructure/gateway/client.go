package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
)

// HTTPClient talks to a Stripe-style payment intents API.
type HTTPClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(cfg config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Capture converts the hold into a funds transfer. A hold the provider already
// captured comes back as OutcomeAlreadyCaptured with no error.
func (c *HTTPClient) Capture(ctx context.Context, holdReference, idempotencyKey string) (*application.CaptureResult, error) {
	if c.secretKey == "" {
		return nil, application.ErrGatewayNotConfigured
	}

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/capture", c.baseURL, url.PathEscape(holdReference))
	intent, err := sendRequest[paymentIntentResponse](c, ctx, http.MethodPost, endpoint, captureRequest{}.form(), idempotencyKey)
	if err != nil {
		if result, ok := alreadyCaptured(err); ok {
			return result, nil
		}
		return nil, err
	}

	if intent.Status != intentStatusSucceeded {
		return nil, &application.GatewayError{
			Code:       "unexpected_intent_status",
			Message:    fmt.Sprintf("capture returned intent in status %q", intent.Status),
			StatusCode: http.StatusOK,
		}
	}

	return &application.CaptureResult{
		Outcome:   application.OutcomeCaptured,
		CaptureID: intent.LatestCharge,
	}, nil
}

// sendRequest posts form as application/x-www-form-urlencoded, the encoding
// the provider's v1 API expects. A nil form sends no body.
func sendRequest[Resp any](c *HTTPClient, ctx context.Context, method, endpoint string, form url.Values, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")
	if form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp.StatusCode, body)
	}

	var out Resp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &out, nil
}
