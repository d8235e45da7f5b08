package handlers_test

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

	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
)

var now = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

// Mock services

type mockSweeper struct {
	runFn func(ctx context.Context, now time.Time) (*services.SweepResult, error)
	calls int
}

func (m *mockSweeper) Run(ctx context.Context, now time.Time) (*services.SweepResult, error) {
	m.calls++
	return m.runFn(ctx, now)
}

type mockDelivery struct {
	handleFn func(ctx context.Context, event domain.DeliveryEvent, now time.Time) (*services.DeliveryResult, error)
	events   []domain.DeliveryEvent
}

func (m *mockDelivery) Handle(ctx context.Context, event domain.DeliveryEvent, now time.Time) (*services.DeliveryResult, error) {
	m.events = append(m.events, event)
	return m.handleFn(ctx, event, now)
}

type mockDisputes struct {
	fileFn func(ctx context.Context, orderID, callerID string, now time.Time) (*domain.Order, error)
}

func (m *mockDisputes) FileProtest(ctx context.Context, orderID, callerID string, now time.Time) (*domain.Order, error) {
	return m.fileFn(ctx, orderID, callerID, now)
}

type mockOrders struct {
	getFn func(ctx context.Context, orderID, callerID string) (*services.OrderDetails, error)
}

func (m *mockOrders) GetOrder(ctx context.Context, orderID, callerID string) (*services.OrderDetails, error) {
	return m.getFn(ctx, orderID, callerID)
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(context.Context) error {
	return m.err
}

type deps struct {
	sweeper  *mockSweeper
	delivery *mockDelivery
	disputes *mockDisputes
	orders   *mockOrders
	health   *mockHealth
}

func newDeps() *deps {
	return &deps{
		sweeper:  &mockSweeper{},
		delivery: &mockDelivery{},
		disputes: &mockDisputes{},
		orders:   &mockOrders{},
		health:   &mockHealth{},
	}
}

func (d *deps) handlers() *handlers.Handlers {
	return handlers.NewHandlers(
		d.sweeper,
		d.delivery,
		d.disputes,
		d.orders,
		d.health,
		clock.NewFixed(now),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// router mounts the handlers with the buyer guard replaced by a fixed identity.
func (d *deps) router(buyerID string) http.Handler {
	mux := http.NewServeMux()
	d.handlers().RegisterRoutes(mux, handlers.Guards{
		Cron: middleware.CronSecret("cron-secret"),
		Buyer: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(middleware.WithBuyerID(r.Context(), buyerID)))
			})
		},
	})
	return mux
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *rest.ErrorDetail `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func testOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(
		"o1", "l1", "buyer-1", "ph_1",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return order
}
