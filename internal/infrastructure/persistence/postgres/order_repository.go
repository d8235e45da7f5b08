package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/jackc/pgx/v5"
)

// OrderRepository is the order record store. State and protest writes are
// compare-and-swap updates; a zero-row update is reported, never retried.
type OrderRepository struct {
	q  Executor
	tc *TransactionCoordinator // nil when already bound to a transaction
}

var _ application.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{
		q:  db.Pool,
		tc: NewTransactionCoordinator(db),
	}
}

// Create inserts an order. Checkout owns creation in production; this is
// used by imports and fixtures.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	m := toDBModel(order)
	_, err := r.q.Exec(ctx, query,
		m.ID,
		m.ListingID,
		m.BuyerID,
		m.State,
		m.ProtestStatus,
		m.CaptureAfter,
		m.PaymentHoldReference,
		m.DeliveryStatus,
		m.ReleasedAt,
		m.ProtestFiledAt,
		m.CaptureAttempts,
		m.LastCaptureError,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) FindLatestByListingID(ctx context.Context, listingID string) (*domain.Order, error) {
	if listingID == "" {
		return nil, domain.ErrOrderNotFound
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE listing_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	order, err := scanOrder(r.q.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.DomainError{
				Code:    domain.ErrCodeOrderNotFound,
				Message: fmt.Sprintf("no order for listing %s", listingID),
			}
		}
		return nil, fmt.Errorf("failed to find order by listing: %w", err)
	}
	return order, nil
}

// FindDueForCapture returns due, unprotested orders that can still settle.
// Orders without a hold or with a permanent provider failure are left to
// the delivery path. Orders with fewer prior attempts sort first.
func (r *OrderRepository) FindDueForCapture(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE state = 'requires_capture'
		  AND protest_status = 'none'
		  AND capture_after <= $1
		  AND payment_hold_reference IS NOT NULL
		  AND last_capture_error IS DISTINCT FROM $3
		ORDER BY capture_attempts ASC, capture_after ASC, id ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit, string(application.CategoryPermanent))
	if err != nil {
		return nil, fmt.Errorf("query orders due for capture: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders due for capture: %w", err)
	}
	return results, nil
}

func (r *OrderRepository) MarkCaptured(ctx context.Context, id string, releasedAt time.Time, deliveryStatus *string) (bool, error) {
	query := `
		UPDATE orders
		SET state = 'captured',
			released_at = $2,
			delivery_status = COALESCE($3, delivery_status),
			updated_at = $2
		WHERE id = $1
		  AND state = 'requires_capture'
		  AND protest_status = 'none'
	`

	detail := "deadline"
	if deliveryStatus != nil {
		detail = "delivery:" + *deliveryStatus
	}

	var matched bool
	err := r.inTransaction(ctx, func(ctx context.Context, orders *OrderRepository, events *EventRepository) error {
		tag, err := orders.q.Exec(ctx, query, id, releasedAt, deliveryStatus)
		if err != nil {
			return fmt.Errorf("failed to mark order captured: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		matched = true
		return events.Append(ctx, id, domain.EventCaptured, detail, releasedAt)
	})
	return matched, err
}

func (r *OrderRepository) FileProtest(ctx context.Context, id string, filedAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET protest_status = 'filed',
			protest_filed_at = $2,
			updated_at = $2
		WHERE id = $1
		  AND state IN ('requires_capture', 'disputed')
		  AND protest_status = 'none'
	`

	var matched bool
	err := r.inTransaction(ctx, func(ctx context.Context, orders *OrderRepository, events *EventRepository) error {
		tag, err := orders.q.Exec(ctx, query, id, filedAt)
		if err != nil {
			return fmt.Errorf("failed to file protest: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		matched = true
		return events.Append(ctx, id, domain.EventProtestFiled, "", filedAt)
	})
	return matched, err
}

func (r *OrderRepository) RecordDeliveryStatus(ctx context.Context, id string, status string, at time.Time) error {
	query := `
		UPDATE orders
		SET delivery_status = $2,
			updated_at = $3
		WHERE id = $1
		  AND delivery_status IS DISTINCT FROM $2
	`

	return r.inTransaction(ctx, func(ctx context.Context, orders *OrderRepository, events *EventRepository) error {
		tag, err := orders.q.Exec(ctx, query, id, status, at)
		if err != nil {
			return fmt.Errorf("failed to record delivery status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return events.Append(ctx, id, domain.EventDeliveryRecorded, status, at)
	})
}

func (r *OrderRepository) RecordCaptureFailure(ctx context.Context, id string, category application.ErrorCategory, at time.Time) error {
	query := `
		UPDATE orders
		SET capture_attempts = capture_attempts + 1,
			last_capture_error = $2,
			updated_at = $3
		WHERE id = $1
		  AND state = 'requires_capture'
	`

	return r.inTransaction(ctx, func(ctx context.Context, orders *OrderRepository, events *EventRepository) error {
		tag, err := orders.q.Exec(ctx, query, id, string(category), at)
		if err != nil {
			return fmt.Errorf("failed to record capture failure: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return events.Append(ctx, id, domain.EventCaptureFailed, string(category), at)
	})
}

func (r *OrderRepository) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	return (&EventRepository{q: r.q}).ListByOrderID(ctx, orderID)
}

func (r *OrderRepository) inTransaction(
	ctx context.Context,
	fn func(ctx context.Context, orders *OrderRepository, events *EventRepository) error,
) error {
	if r.tc == nil {
		return fn(ctx, r, &EventRepository{q: r.q})
	}
	return r.tc.WithTransaction(ctx, fn)
}

// scanOrder converts a database row into a domain Order.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var m OrderModel
	err := row.Scan(
		&m.ID, &m.ListingID, &m.BuyerID, &m.State, &m.ProtestStatus, &m.CaptureAfter,
		&m.PaymentHoldReference, &m.DeliveryStatus, &m.ReleasedAt, &m.ProtestFiledAt,
		&m.CaptureAttempts, &m.LastCaptureError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return toDomainModel(m), nil
}
