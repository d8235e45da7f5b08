package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

const (
	CronSecretHeader    = "X-Cron-Secret"
	WebhookSecretHeader = "X-Webhook-Secret"
)

var errCronSecretMissing = errors.New("cron secret is not configured")

// CronSecret guards the capture trigger. The secret comes as a bearer token
// or in X-Cron-Secret. An empty configured secret fails closed with a 500.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				rest.WriteError(w, application.NewConfigurationError(errCronSecretMissing), nil)
				return
			}

			presented, ok := bearerToken(r)
			if !ok {
				presented = r.Header.Get(CronSecretHeader)
			}

			if !secretsEqual(presented, secret) {
				rest.WriteError(w, application.NewUnauthorizedError("Invalid cron secret"), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WebhookSecret checks X-Webhook-Secret when a secret is configured and lets
// everything through otherwise.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretsEqual(r.Header.Get(WebhookSecretHeader), secret) {
				rest.WriteError(w, application.NewUnauthorizedError("Invalid webhook secret"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretsEqual(presented, expected string) bool {
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
