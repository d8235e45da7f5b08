package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// OrderCreator is satisfied by the postgres repository and the in-memory fake.
type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
}

// OrderOption customizes an order built by NewOrder.
type OrderOption func(*domain.Order)

func WithBuyer(buyerID string) OrderOption {
	return func(o *domain.Order) { o.BuyerID = buyerID }
}

func WithListing(listingID string) OrderOption {
	return func(o *domain.Order) { o.ListingID = listingID }
}

func WithCaptureAfter(t time.Time) OrderOption {
	return func(o *domain.Order) { o.CaptureAfter = t }
}

func WithCreatedAt(t time.Time) OrderOption {
	return func(o *domain.Order) {
		o.CreatedAt = t
		o.UpdatedAt = t
	}
}

func WithProtest(at time.Time) OrderOption {
	return func(o *domain.Order) {
		o.ProtestStatus = domain.ProtestFiled
		o.ProtestFiledAt = &at
	}
}

func WithState(state domain.OrderState, releasedAt *time.Time) OrderOption {
	return func(o *domain.Order) {
		o.State = state
		o.ReleasedAt = releasedAt
	}
}

func WithoutHold() OrderOption {
	return func(o *domain.Order) { o.PaymentHoldReference = nil }
}

// NewOrder returns a requires_capture order created a week before
// captureAfter's default of 2025-01-01T00:00:00Z.
func NewOrder(opts ...OrderOption) *domain.Order {
	createdAt := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	order, err := domain.NewOrder(
		"order-"+uuid.NewString(),
		"listing-"+uuid.NewString(),
		"buyer-"+uuid.NewString(),
		"pi_"+uuid.NewString(),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		createdAt,
	)
	if err != nil {
		panic(err)
	}
	for _, opt := range opts {
		opt(order)
	}
	return order
}

// CreateOrder builds and persists an order.
func CreateOrder(t *testing.T, ctx context.Context, repo OrderCreator, opts ...OrderOption) *domain.Order {
	t.Helper()
	order := NewOrder(opts...)
	require.NoError(t, repo.Create(ctx, order))
	return order
}
