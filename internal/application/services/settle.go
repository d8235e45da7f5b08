package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// Capture sources, used in logs and metrics.
const (
	SourceSweep    = "sweep"
	SourceDelivery = "delivery"
)

type settleOutcome string

const (
	settleCaptured       settleOutcome = "captured"
	settleAlreadySettled settleOutcome = "already_settled"
	settleFrozen         settleOutcome = "frozen"
	settleNotDue         settleOutcome = "not_due"
	settleFailed         settleOutcome = "failed"
)

type settleRequest struct {
	orderID           string
	now               time.Time
	deliveryConfirmed bool
	deliveryStatus    *string
	source            string
}

// settler is the capture path shared by the sweep and the delivery listener:
// re-read, check, capture at the provider, then compare-and-swap the row.
type settler struct {
	repo    application.OrderRepository
	gateway application.PaymentGateway
	metrics application.Metrics
	logger  *slog.Logger
}

// settle returns settleFailed with a nil error when the provider refused or
// could not be reached; the failure is already logged and recorded. A non-nil
// error means the store or configuration is broken and the caller must surface it.
func (s *settler) settle(ctx context.Context, req settleRequest) (settleOutcome, error) {
	order, err := s.repo.FindByID(ctx, req.orderID)
	if err != nil {
		return settleFailed, err
	}

	if err := order.CheckCapturable(req.now, req.deliveryConfirmed); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadySettled):
			return settleAlreadySettled, nil
		case errors.Is(err, domain.ErrOrderFrozen):
			return settleFrozen, nil
		case errors.Is(err, domain.ErrCaptureNotDue):
			return settleNotDue, nil
		default:
			s.logger.Error("order cannot be captured",
				"order_id", order.ID,
				"error", err,
			)
			return settleFailed, err
		}
	}

	hold, _ := order.HoldReference()
	result, err := s.gateway.Capture(ctx, hold, application.CaptureIdempotencyKey(hold))
	if err != nil {
		category := application.CategorizeError(err)
		s.logger.Error("capture failed",
			"order_id", order.ID,
			"hold_reference", hold,
			"source", req.source,
			"category", category,
			"error", err,
		)
		s.metrics.CaptureFailed(ctx, req.source, category)

		if category == application.CategoryConfiguration {
			return settleFailed, application.NewConfigurationError(err)
		}

		if recErr := s.repo.RecordCaptureFailure(ctx, order.ID, category, req.now); recErr != nil {
			s.logger.Warn("failed to record capture attempt",
				"order_id", order.ID,
				"error", recErr,
			)
		}
		return settleFailed, nil
	}

	if err := order.Capture(req.now); err != nil {
		s.logger.Error("CRITICAL: provider captured hold but order rejected the transition",
			"order_id", order.ID,
			"hold_reference", hold,
			"error", err,
		)
		return settleFailed, err
	}

	matched, err := s.repo.MarkCaptured(ctx, order.ID, req.now, req.deliveryStatus)
	if err != nil {
		// The next run reaches the same idempotency key and heals the row.
		s.logger.Error("CRITICAL: provider captured hold but order update failed",
			"order_id", order.ID,
			"hold_reference", hold,
			"capture_id", result.CaptureID,
			"error", err,
		)
		return settleFailed, application.NewInternalError(err)
	}

	if !matched {
		current, err := s.repo.FindByID(ctx, order.ID)
		if err == nil && current.IsSettled() {
			s.logger.Info("order already handled by a concurrent trigger",
				"order_id", order.ID,
				"source", req.source,
			)
			return settleAlreadySettled, nil
		}
		s.logger.Error("CRITICAL: protest filed while capture was in flight, manual reconciliation required",
			"order_id", order.ID,
			"hold_reference", hold,
			"capture_id", result.CaptureID,
		)
		return settleFrozen, nil
	}

	s.metrics.CaptureSucceeded(ctx, req.source)
	s.logger.Info("order captured",
		"order_id", order.ID,
		"hold_reference", hold,
		"capture_id", result.CaptureID,
		"provider_outcome", result.Outcome,
		"source", req.source,
	)
	return settleCaptured, nil
}
