package postgres

import (
	"time"
)

// OrderModel mirrors a row of the orders table.
type OrderModel struct {
	ID                   string
	ListingID            string
	BuyerID              string
	State                string
	ProtestStatus        string
	CaptureAfter         time.Time
	PaymentHoldReference *string
	DeliveryStatus       *string
	ReleasedAt           *time.Time
	ProtestFiledAt       *time.Time
	CaptureAttempts      int
	LastCaptureError     *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderEventModel mirrors a row of the order_events table.
type OrderEventModel struct {
	ID         string
	OrderID    string
	Kind       string
	Detail     string
	OccurredAt time.Time
}

const orderColumns = `
	id, listing_id, buyer_id, state, protest_status, capture_after,
	payment_hold_reference, delivery_status, released_at, protest_filed_at,
	capture_attempts, last_capture_error, created_at, updated_at`
