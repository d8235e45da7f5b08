package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/router"
)

const (
	cronSecret    = "router-cron-secret"
	webhookSecret = "router-webhook-secret"
	jwtSecret     = "router-signing-key"
)

type stubSweeper struct{}

func (stubSweeper) Run(context.Context, time.Time) (*services.SweepResult, error) {
	return &services.SweepResult{}, nil
}

type stubDelivery struct{ calls int }

func (s *stubDelivery) Handle(_ context.Context, event domain.DeliveryEvent, _ time.Time) (*services.DeliveryResult, error) {
	s.calls++
	return &services.DeliveryResult{OrderID: event.OrderID, Outcome: services.DeliveryIgnored}, nil
}

type stubDisputes struct{ calls int }

func (s *stubDisputes) FileProtest(_ context.Context, orderID, callerID string, now time.Time) (*domain.Order, error) {
	s.calls++
	return testhelpers.NewOrder(testhelpers.WithBuyer(callerID), testhelpers.WithProtest(now)), nil
}

type stubOrders struct{}

func (stubOrders) GetOrder(context.Context, string, string) (*services.OrderDetails, error) {
	return nil, domain.NewOrderNotFoundError("missing")
}

type stubHealth struct{}

func (stubHealth) Ping(context.Context) error { return nil }

type stack struct {
	handler  http.Handler
	delivery *stubDelivery
	disputes *stubDisputes
}

func newStack(t *testing.T, limits config.RateLimitConfig) *stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	delivery := &stubDelivery{}
	disputes := &stubDisputes{}
	h := handlers.NewHandlers(stubSweeper{}, delivery, disputes, stubOrders{}, stubHealth{},
		clock.NewFixed(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)), logger)

	cfg := &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 5 * time.Second},
		Cron:    config.CronConfig{Secret: cronSecret},
		Webhook: config.WebhookConfig{Secret: webhookSecret},
		Auth:    config.AuthConfig{JWTSecret: jwtSecret},
	}

	handler, err := router.New(h, cfg, middleware.NewRateLimiter(limits), logger)
	require.NoError(t, err)
	return &stack{handler: handler, delivery: delivery, disputes: disputes}
}

func (s *stack) send(method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, rest.ErrorResponse) {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var resp rest.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func bearer(t *testing.T, buyerID string) map[string]string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   buyerID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

var defaultLimits = config.RateLimitConfig{RPS: 20, Burst: 40}

func TestRouter_WebhookBurstIsNeverRateLimited(t *testing.T) {
	s := newStack(t, defaultLimits)
	headers := map[string]string{middleware.WebhookSecretHeader: webhookSecret}

	codes := make(map[int]int)
	for i := 0; i < 60; i++ {
		w, _ := s.send(http.MethodPost, "/webhooks/delivery", `{"order_id":"o1","status":"in_transit"}`, headers)
		codes[w.Code]++
	}

	assert.Equal(t, map[int]int{http.StatusOK: 60}, codes)
	assert.Equal(t, 60, s.delivery.calls)
}

func TestRouter_CronBurstIsNeverRateLimited(t *testing.T) {
	s := newStack(t, config.RateLimitConfig{RPS: 1, Burst: 1})
	headers := map[string]string{middleware.CronSecretHeader: cronSecret}

	for i := 0; i < 5; i++ {
		w, _ := s.send(http.MethodPost, "/cron/capture-due", "", headers)
		require.Equal(t, http.StatusOK, w.Code, "trigger %d", i)
	}
}

func TestRouter_BuyerRoutesAreRateLimited(t *testing.T) {
	s := newStack(t, config.RateLimitConfig{RPS: 1, Burst: 2})
	headers := bearer(t, "buyer-1")

	for i := 0; i < 2; i++ {
		w, _ := s.send(http.MethodPost, "/orders/protest", `{"orderId":"o1"}`, headers)
		require.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}

	w, resp := s.send(http.MethodPost, "/orders/protest", `{"orderId":"o1"}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, application.ErrCodeRateLimited, resp.Error.Code)
	assert.Equal(t, 2, s.disputes.calls)
}

func TestRouter_UnexpectedWebhookShapesAreAcknowledged(t *testing.T) {
	s := newStack(t, defaultLimits)
	headers := map[string]string{middleware.WebhookSecretHeader: webhookSecret}

	for _, body := range []string{
		`{"event":"label.created","data":{"status":7}}`,
		`{"event":"ping","data":"hello"}`,
		`{"order_id":123,"status":"in_transit"}`,
	} {
		w, _ := s.send(http.MethodPost, "/webhooks/delivery", body, headers)
		assert.Equal(t, http.StatusOK, w.Code, body)
	}
}

func TestRouter_AuthenticationRunsBeforeValidation(t *testing.T) {
	s := newStack(t, defaultLimits)

	tests := []struct {
		name    string
		path    string
		body    string
		headers map[string]string
		code    string
	}{
		{"protest without token", "/orders/protest", `{"orderId":""}`, nil, application.ErrCodeUnauthenticated},
		{"protest with bad token", "/orders/protest", `{}`, map[string]string{"Authorization": "Bearer nope"}, application.ErrCodeUnauthorized},
		{"webhook with wrong secret", "/webhooks/delivery", `not json`, map[string]string{middleware.WebhookSecretHeader: "wrong"}, application.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.send(http.MethodPost, tt.path, tt.body, tt.headers)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
	assert.Zero(t, s.disputes.calls)
	assert.Zero(t, s.delivery.calls)
}

func TestRouter_ValidationMessageIsShort(t *testing.T) {
	s := newStack(t, defaultLimits)

	w, resp := s.send(http.MethodPost, "/orders/protest", `{"orderId":""}`, bearer(t, "buyer-1"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, application.ErrCodeInvalidInput, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "orderId")
	assert.NotContains(t, resp.Error.Message, "Schema")
	assert.NotContains(t, resp.Error.Message, "\n")
	assert.Zero(t, s.disputes.calls)
}
