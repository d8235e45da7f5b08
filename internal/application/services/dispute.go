package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// DisputeService lets a buyer freeze automatic capture of their order.
type DisputeService struct {
	repo   application.OrderRepository
	logger *slog.Logger
}

func NewDisputeService(repo application.OrderRepository, logger *slog.Logger) *DisputeService {
	return &DisputeService{
		repo:   repo,
		logger: logger,
	}
}

// FileProtest sets protest_status=filed. Filing twice returns the order
// unchanged. Settled orders are rejected with domain.ErrAlreadySettled.
func (s *DisputeService) FileProtest(ctx context.Context, orderID, callerID string, now time.Time) (*domain.Order, error) {
	if callerID == "" {
		return nil, application.ErrUnauthenticated
	}
	if orderID == "" {
		return nil, application.NewInvalidInputError(domain.NewMissingRequiredFieldError("orderId"))
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	filed, err := order.FileProtest(callerID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotOrderBuyer) {
			s.logger.Warn("protest rejected, caller is not the buyer",
				"order_id", orderID,
				"caller_id", callerID,
			)
		}
		return nil, err
	}
	if !filed {
		return order, nil
	}

	matched, err := s.repo.FileProtest(ctx, orderID, now)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	if !matched {
		current, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.IsProtested():
			return current, nil
		case current.IsSettled():
			return nil, domain.NewAlreadySettledError(current.ID, current.State)
		default:
			return nil, application.NewInternalError(fmt.Errorf("protest update matched no row for order %s", orderID))
		}
	}

	s.logger.Info("protest filed",
		"order_id", orderID,
		"state", order.State,
	)
	return order, nil
}
