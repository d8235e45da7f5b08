package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/gateway"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/router"
)

const (
	cronSecret = "e2e-cron-secret"
	jwtSecret  = "e2e-signing-key"
)

// fakeProvider is a payment intents API that captures each intent once.
// Replays with the same idempotency key return the original response, and a
// second capture under a new key fails with the provider's unexpected-state
// error.
type fakeProvider struct {
	mu       sync.Mutex
	captured map[string]bool
	byKey    map[string]string
	captures int
	failWith int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		captured: make(map[string]bool),
		byKey:    make(map[string]string),
	}
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	intentID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/payment_intents/"), "/capture")
	key := r.Header.Get("Idempotency-Key")

	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if p.failWith != 0 {
		w.WriteHeader(p.failWith)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "api_error", "message": "provider unavailable"},
		})
		return
	}

	if _, ok := p.byKey[key]; ok || !p.captured[intentID] {
		if !ok {
			p.byKey[key] = intentID
			p.captured[intentID] = true
			p.captures++
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            intentID,
			"object":        "payment_intent",
			"status":        "succeeded",
			"latest_charge": "ch_" + intentID,
		})
		return
	}

	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"type":    "invalid_request_error",
			"code":    "payment_intent_unexpected_state",
			"message": "This PaymentIntent has already been captured.",
			"payment_intent": map[string]any{
				"id":            intentID,
				"status":        "succeeded",
				"latest_charge": "ch_" + intentID,
			},
		},
	})
}

func (p *fakeProvider) Captures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captures
}

func (p *fakeProvider) FailWith(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = status
}

// newServer assembles the full HTTP stack against db and provider with a
// clock fixed at now.
func newServer(t *testing.T, db *postgres.DB, provider *fakeProvider, now time.Time) *httptest.Server {
	t.Helper()

	providerServer := httptest.NewServer(provider)
	t.Cleanup(providerServer.Close)

	cfg := &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 10 * time.Second},
		Gateway: config.GatewayConfig{BaseURL: providerServer.URL, SecretKey: "sk_test_e2e", Timeout: 2 * time.Second},
		Retry:   config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 2},
		Sweep:   config.SweepConfig{BatchSize: 20, Concurrency: 4},
		Cron:    config.CronConfig{Secret: cronSecret},
		Auth:    config.AuthConfig{JWTSecret: jwtSecret},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewOrderRepository(db)
	client := gateway.NewRetryingClient(gateway.NewClient(cfg.Gateway), cfg.Retry, logger)
	metrics := application.NopMetrics{}

	h := handlers.NewHandlers(
		services.NewSweepService(repo, client, metrics, cfg.Sweep, logger),
		services.NewDeliveryService(repo, client, nil, metrics, logger),
		services.NewDisputeService(repo, logger),
		services.NewQueryService(repo),
		db,
		clock.NewFixed(now),
		logger,
	)

	handler, err := router.New(h, cfg, nil, logger)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// TestClient wraps HTTP calls to the settlement service
type TestClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *rest.ErrorDetail `json:"error"`
}

func (c *TestClient) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(bodyBytes, &env), "body: %s", bodyBytes)
	return resp.StatusCode, env
}

// CaptureDue triggers one sweep the way the scheduler does.
func (c *TestClient) CaptureDue(t *testing.T) services.SweepResult {
	status, env := c.do(t, http.MethodPost, "/cron/capture-due", nil,
		map[string]string{"Authorization": "Bearer " + cronSecret})
	require.Equal(t, http.StatusOK, status, "capture-due: %+v", env.Error)

	var result services.SweepResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result
}

// Deliver posts a carrier event and returns the HTTP status and outcome.
func (c *TestClient) Deliver(t *testing.T, payload map[string]any) (int, services.DeliveryResult) {
	status, env := c.do(t, http.MethodPost, "/webhooks/delivery", payload, nil)

	var result services.DeliveryResult
	if env.Success {
		require.NoError(t, json.Unmarshal(env.Data, &result))
	}
	return status, result
}

func (c *TestClient) Protest(t *testing.T, buyerID, orderID string) (int, envelope) {
	return c.do(t, http.MethodPost, "/orders/protest", map[string]any{"orderId": orderID},
		map[string]string{"Authorization": "Bearer " + buyerToken(t, buyerID)})
}

func (c *TestClient) GetOrder(t *testing.T, buyerID, orderID string) (int, *rest.Order) {
	status, env := c.do(t, http.MethodGet, "/orders/"+orderID, nil,
		map[string]string{"Authorization": "Bearer " + buyerToken(t, buyerID)})
	if status != http.StatusOK {
		return status, nil
	}

	var order rest.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	return status, &order
}

func buyerToken(t *testing.T, buyerID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   buyerID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err, fmt.Sprintf("sign token for %s", buyerID))
	return token
}
