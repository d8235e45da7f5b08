package domain

import "time"

// OrderEventKind names a mutation recorded in the order's audit trail.
type OrderEventKind string

const (
	EventCaptured         OrderEventKind = "captured"
	EventProtestFiled     OrderEventKind = "protest_filed"
	EventDeliveryRecorded OrderEventKind = "delivery_recorded"
	EventCaptureFailed    OrderEventKind = "capture_failed"
)

// OrderEvent is one append-only audit entry. Events are written in the same
// transaction as the mutation they describe.
type OrderEvent struct {
	ID         string
	OrderID    string
	Kind       OrderEventKind
	Detail     string
	OccurredAt time.Time
}
