package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// OrderDetails is an order with its audit trail.
type OrderDetails struct {
	Order  *domain.Order
	Events []domain.OrderEvent
}

type QueryService struct {
	repo application.OrderRepository
}

func NewQueryService(repo application.OrderRepository) *QueryService {
	return &QueryService{repo: repo}
}

// GetOrder returns the order to its buyer. Anyone else gets domain.ErrNotOrderBuyer.
func (s *QueryService) GetOrder(ctx context.Context, orderID, callerID string) (*OrderDetails, error) {
	if callerID == "" {
		return nil, application.ErrUnauthenticated
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != callerID {
		return nil, domain.ErrNotOrderBuyer
	}

	events, err := s.repo.ListEvents(ctx, orderID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	return &OrderDetails{Order: order, Events: events}, nil
}
