package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

type CaptureSweeper interface {
	Run(ctx context.Context, now time.Time) (*services.SweepResult, error)
}

type DeliveryListener interface {
	Handle(ctx context.Context, event domain.DeliveryEvent, now time.Time) (*services.DeliveryResult, error)
}

type ProtestIntake interface {
	FileProtest(ctx context.Context, orderID, callerID string, now time.Time) (*domain.Order, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, orderID, callerID string) (*services.OrderDetails, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers serves the settlement HTTP API. Every handler reads "now" from the
// clock and passes it down explicitly.
type Handlers struct {
	sweeper  CaptureSweeper
	delivery DeliveryListener
	disputes ProtestIntake
	orders   OrderReader
	health   HealthChecker
	clock    clock.Clock
	logger   *slog.Logger
}

func NewHandlers(
	sweeper CaptureSweeper,
	delivery DeliveryListener,
	disputes ProtestIntake,
	orders OrderReader,
	health HealthChecker,
	clk clock.Clock,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		sweeper:  sweeper,
		delivery: delivery,
		disputes: disputes,
		orders:   orders,
		health:   health,
		clock:    clk,
		logger:   logger,
	}
}

// Guards are the per-route middlewares. Each route runs its authentication
// guard first and Validate second.
type Guards struct {
	Cron     func(http.Handler) http.Handler
	Webhook  func(http.Handler) http.Handler
	Buyer    func(http.Handler) http.Handler
	Validate func(http.Handler) http.Handler
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux, guards Guards) {
	route := func(auth func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		return guard(auth, guard(guards.Validate, fn))
	}

	captureDue := route(guards.Cron, h.CaptureDue)
	mux.Handle("POST /cron/capture-due", captureDue)
	mux.Handle("GET /cron/capture-due", captureDue)

	mux.Handle("POST /webhooks/delivery", route(guards.Webhook, h.DeliveryWebhook))

	mux.Handle("POST /orders/protest", route(guards.Buyer, h.FileProtest))
	mux.Handle("GET /orders/{orderId}", route(guards.Buyer, h.GetOrder))

	mux.Handle("GET /health", route(nil, h.Health))
}

func guard(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	if mw == nil {
		return next
	}
	return mw(next)
}
