package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
)

// RetryingClient retries transient capture failures. The idempotency key is
// reused on every attempt, so a retry never moves funds twice.
type RetryingClient struct {
	inner      application.PaymentGateway
	baseDelay  time.Duration
	maxRetries int
	logger     *slog.Logger
}

func NewRetryingClient(inner application.PaymentGateway, cfg config.RetryConfig, logger *slog.Logger) *RetryingClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryingClient{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (r *RetryingClient) Capture(ctx context.Context, holdReference, idempotencyKey string) (*application.CaptureResult, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.CaptureResult, error) {
		return r.inner.Capture(ctx, holdReference, idempotencyKey)
	})
}

// Generic retry helper
func retry[T any](r *RetryingClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			delay := r.backoff(attempt)
			r.logger.Warn("retrying gateway call",
				"attempt", attempt+1,
				"max_attempts", r.maxRetries,
				"delay", delay,
				"error", err,
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if errors.Is(err, application.ErrGatewayNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}

	if gwErr, ok := application.IsGatewayError(err); ok {
		return gwErr.IsRetryable() || gwErr.Code == "lock_timeout" || gwErr.Code == "rate_limit"
	}

	// transport failures and client-side timeouts
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryingClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Int63n(int64(r.baseDelay)/2 + 1))

	return base + jitter
}
