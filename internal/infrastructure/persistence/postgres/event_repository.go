package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventRepository appends to and reads the order_events audit trail.
type EventRepository struct {
	q Executor
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{q: db.Pool}
}

func (r *EventRepository) Append(ctx context.Context, orderID string, kind domain.OrderEventKind, detail string, at time.Time) error {
	query := `
		INSERT INTO order_events (id, order_id, kind, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.q.Exec(ctx, query, uuid.NewString(), orderID, string(kind), detail, at); err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	query := `
		SELECT id::text, order_id, kind, detail, occurred_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderEvent, error) {
		var m OrderEventModel
		err := row.Scan(&m.ID, &m.OrderID, &m.Kind, &m.Detail, &m.OccurredAt)
		return toDomainEvent(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order events: %w", err)
	}
	return events, nil
}
