package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

type DeliveryOutcome string

const (
	DeliveryIgnored        DeliveryOutcome = "ignored"
	DeliveryCaptured       DeliveryOutcome = "captured"
	DeliveryAlreadySettled DeliveryOutcome = "already_settled"
	DeliveryFrozen         DeliveryOutcome = "frozen"
	DeliveryCaptureFailed  DeliveryOutcome = "capture_failed"
	DeliveryDuplicate      DeliveryOutcome = "duplicate"
)

type DeliveryResult struct {
	OrderID string          `json:"order_id,omitempty"`
	Outcome DeliveryOutcome `json:"outcome"`
}

// DeliveryService settles an order as soon as its carrier reports delivery.
type DeliveryService struct {
	repo    application.OrderRepository
	settler *settler
	replay  application.DeliveryReplayGuard
	logger  *slog.Logger
}

// NewDeliveryService builds the listener. replay may be nil.
func NewDeliveryService(
	repo application.OrderRepository,
	gateway application.PaymentGateway,
	replay application.DeliveryReplayGuard,
	metrics application.Metrics,
	logger *slog.Logger,
) *DeliveryService {
	return &DeliveryService{
		repo: repo,
		settler: &settler{
			repo:    repo,
			gateway: gateway,
			metrics: metrics,
			logger:  logger,
		},
		replay: replay,
		logger: logger,
	}
}

// Handle applies one carrier event. Events other than delivered are
// acknowledged without side effects. Provider failures are acknowledged too
// (the sweep retries the capture at the deadline); store and configuration
// failures are returned so the carrier redelivers.
func (s *DeliveryService) Handle(ctx context.Context, event domain.DeliveryEvent, now time.Time) (*DeliveryResult, error) {
	if !event.Delivered() {
		s.logger.Debug("ignoring non-delivery event",
			"order_id", event.OrderID,
			"listing_id", event.ListingID,
			"status", event.Status,
		)
		return &DeliveryResult{OrderID: event.OrderID, Outcome: DeliveryIgnored}, nil
	}

	order, err := s.resolve(ctx, event)
	if err != nil {
		return nil, err
	}

	if _, err := order.HoldReference(); err != nil {
		s.logger.Error("delivered order has no payment hold reference",
			"order_id", order.ID,
		)
		return nil, err
	}

	key := replayKey(order.ID)
	if s.replay != nil {
		seen, err := s.replay.Seen(ctx, key)
		if err != nil {
			s.logger.Warn("replay guard unavailable", "order_id", order.ID, "error", err)
		} else if seen {
			s.logger.Info("duplicate delivery event", "order_id", order.ID)
			return &DeliveryResult{OrderID: order.ID, Outcome: DeliveryDuplicate}, nil
		}
	}

	status := event.Status
	outcome, err := s.settler.settle(ctx, settleRequest{
		orderID:           order.ID,
		now:               now,
		deliveryConfirmed: true,
		deliveryStatus:    &status,
		source:            SourceDelivery,
	})
	if err != nil {
		return nil, err
	}

	result := &DeliveryResult{OrderID: order.ID}
	switch outcome {
	case settleCaptured:
		result.Outcome = DeliveryCaptured
		s.remember(ctx, key)
	case settleAlreadySettled:
		result.Outcome = DeliveryAlreadySettled
		s.recordStatus(ctx, order.ID, status, now)
		s.remember(ctx, key)
	case settleFrozen:
		result.Outcome = DeliveryFrozen
		s.recordStatus(ctx, order.ID, status, now)
		s.logger.Info("delivery recorded on protested order, capture withheld", "order_id", order.ID)
	case settleFailed:
		result.Outcome = DeliveryCaptureFailed
	default:
		result.Outcome = DeliveryIgnored
	}
	return result, nil
}

func (s *DeliveryService) resolve(ctx context.Context, event domain.DeliveryEvent) (*domain.Order, error) {
	if !event.HasCorrelation() {
		return nil, domain.ErrOrderNotFound
	}
	if event.OrderID != "" {
		return s.repo.FindByID(ctx, event.OrderID)
	}
	return s.repo.FindLatestByListingID(ctx, event.ListingID)
}

func (s *DeliveryService) recordStatus(ctx context.Context, orderID, status string, now time.Time) {
	if err := s.repo.RecordDeliveryStatus(ctx, orderID, status, now); err != nil {
		s.logger.Warn("failed to record delivery status",
			"order_id", orderID,
			"error", err,
		)
	}
}

func (s *DeliveryService) remember(ctx context.Context, key string) {
	if s.replay == nil {
		return
	}
	if err := s.replay.Remember(ctx, key); err != nil {
		s.logger.Warn("failed to remember delivery event", "key", key, "error", err)
	}
}

func replayKey(orderID string) string {
	return "delivery:" + orderID
}
