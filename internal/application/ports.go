package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// OrderRepository is the port for the order record store. Every write that
// touches state or protest_status is conditional; the bool result reports
// whether the row matched.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// FindLatestByListingID returns the most recently created order for the listing.
	FindLatestByListingID(ctx context.Context, listingID string) (*domain.Order, error)
	// FindDueForCapture selects requires_capture, unprotested orders whose
	// capture_after is at or before now. Orders with no hold or a permanent
	// capture failure are excluded. Fewest attempts first, then oldest deadline.
	FindDueForCapture(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)

	// MarkCaptured sets captured and released_at only while the order is still
	// requires_capture with no protest on file.
	MarkCaptured(ctx context.Context, id string, releasedAt time.Time, deliveryStatus *string) (bool, error)
	// FileProtest sets protest_status=filed only while the order is unsettled.
	FileProtest(ctx context.Context, id string, filedAt time.Time) (bool, error)
	// RecordDeliveryStatus keeps the carrier status for audit. Repeating the
	// same status is a no-op.
	RecordDeliveryStatus(ctx context.Context, id string, status string, at time.Time) error
	RecordCaptureFailure(ctx context.Context, id string, category ErrorCategory, at time.Time) error

	ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}

// PaymentGateway captures provider holds.
type PaymentGateway interface {
	Capture(ctx context.Context, holdReference string, idempotencyKey string) (*CaptureResult, error)
}

// DeliveryReplayGuard remembers delivery events that already settled an order.
// Implementations may be lossy; the store remains the source of truth.
type DeliveryReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// Metrics records settlement outcomes.
type Metrics interface {
	CaptureSucceeded(ctx context.Context, source string)
	CaptureFailed(ctx context.Context, source string, category ErrorCategory)
	SweepSelected(ctx context.Context, count int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CaptureSucceeded(context.Context, string)              {}
func (NopMetrics) CaptureFailed(context.Context, string, ErrorCategory) {}
func (NopMetrics) SweepSelected(context.Context, int)                   {}
