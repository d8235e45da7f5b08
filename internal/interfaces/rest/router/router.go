// Package router assembles the settlement HTTP stack.
package router

import (
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-settlement/internal/api"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
)

// New mounts the routes behind their guards and wraps the mux with the
// global middleware. The outermost layer runs first:
// logging, recovery, timeout. Inside the mux each route runs its
// authentication guard before OpenAPI validation. The rate limiter only
// throttles buyer routes; carrier and scheduler traffic is never limited.
func New(h *handlers.Handlers, cfg *config.Config, limiter *middleware.RateLimiter, logger *slog.Logger) (http.Handler, error) {
	doc, err := api.GetSwagger()
	if err != nil {
		return nil, err
	}
	validator, err := api.RequestValidator(doc, logger)
	if err != nil {
		return nil, err
	}

	buyer := middleware.BuyerAuth(middleware.NewTokenValidator(cfg.Auth))
	if limiter != nil {
		buyerAuth := buyer
		buyer = func(next http.Handler) http.Handler {
			return limiter.Middleware(buyerAuth(next))
		}
	}

	mux := http.NewServeMux()
	api.RegisterDocsRoutes(mux)
	h.RegisterRoutes(mux, handlers.Guards{
		Cron:     middleware.CronSecret(cfg.Cron.Secret),
		Webhook:  middleware.WebhookSecret(cfg.Webhook.Secret),
		Buyer:    buyer,
		Validate: validator,
	})

	handler := middleware.Timeout(cfg.Server.RequestTimeout)(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)

	return handler, nil
}
