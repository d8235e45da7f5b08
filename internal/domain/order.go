// Package domain models a marketplace order whose payment is held at checkout
// and captured later, once delivery is confirmed or a deadline passes.
package domain

import (
	"slices"
	"strings"
	"time"
)

// OrderState is the settlement state of an order's held funds.
type OrderState string

const (
	StateRequiresCapture OrderState = "requires_capture"
	StateCaptured        OrderState = "captured"
	StateReleased        OrderState = "released"
	StateDisputed        OrderState = "disputed"
)

// ProtestStatus is independent of OrderState and gates automatic capture.
type ProtestStatus string

const (
	ProtestNone  ProtestStatus = "none"
	ProtestFiled ProtestStatus = "filed"
)

// DeliveredStatus is the only carrier status with meaning to settlement.
const DeliveredStatus = "delivered"

type Order struct {
	ID        string
	ListingID string
	BuyerID   string

	State         OrderState
	ProtestStatus ProtestStatus

	CaptureAfter         time.Time
	PaymentHoldReference *string
	DeliveryStatus       *string

	ReleasedAt     *time.Time
	ProtestFiledAt *time.Time

	CaptureAttempts  int
	LastCaptureError *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds an order in requires_capture. Checkout owns creation; this
// constructor exists for fixtures and imports.
func NewOrder(id, listingID, buyerID, holdReference string, captureAfter, createdAt time.Time) (*Order, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("order ID")
	}
	if buyerID == "" {
		return nil, NewMissingRequiredFieldError("buyer ID")
	}
	if holdReference == "" {
		return nil, NewMissingRequiredFieldError("payment hold reference")
	}
	if captureAfter.IsZero() {
		return nil, NewMissingRequiredFieldError("capture after")
	}

	return &Order{
		ID:                   id,
		ListingID:            listingID,
		BuyerID:              buyerID,
		State:                StateRequiresCapture,
		ProtestStatus:        ProtestNone,
		CaptureAfter:         captureAfter,
		PaymentHoldReference: &holdReference,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}, nil
}

// HoldReference returns the provider hold token. Its absence is a data
// integrity fault, never a business outcome.
func (o *Order) HoldReference() (string, error) {
	if o.PaymentHoldReference == nil || strings.TrimSpace(*o.PaymentHoldReference) == "" {
		return "", NewMissingHoldReferenceError(o.ID)
	}
	return *o.PaymentHoldReference, nil
}

func (o *Order) IsSettled() bool {
	return o.State == StateCaptured || o.State == StateReleased
}

func (o *Order) IsProtested() bool {
	return o.ProtestStatus == ProtestFiled
}

// DueForCapture reports whether the capture deadline has passed at now.
func (o *Order) DueForCapture(now time.Time) bool {
	return !o.CaptureAfter.After(now)
}

// CheckCapturable decides whether the order may be captured at now.
// deliveryConfirmed lifts the deadline requirement but never the protest guard.
func (o *Order) CheckCapturable(now time.Time, deliveryConfirmed bool) error {
	if o.IsSettled() {
		return NewAlreadySettledError(o.ID, o.State)
	}
	if o.State != StateRequiresCapture || o.IsProtested() {
		return ErrOrderFrozen
	}
	if _, err := o.HoldReference(); err != nil {
		return err
	}
	if !deliveryConfirmed && !o.DueForCapture(now) {
		return ErrCaptureNotDue
	}
	return nil
}

// Capture moves the order to captured and stamps released_at.
func (o *Order) Capture(releasedAt time.Time) error {
	if o.IsProtested() {
		return ErrOrderFrozen
	}
	if releasedAt.Before(o.CreatedAt) {
		return ErrInvalidReleaseTime
	}
	if err := o.transition(StateCaptured); err != nil {
		return err
	}
	o.ReleasedAt = &releasedAt
	return nil
}

// FileProtest freezes automatic capture on behalf of the buyer. It reports
// false when a protest was already on file.
func (o *Order) FileProtest(callerID string, at time.Time) (bool, error) {
	if callerID == "" || callerID != o.BuyerID {
		return false, ErrNotOrderBuyer
	}
	if o.IsProtested() {
		return false, nil
	}
	if o.IsSettled() {
		return false, NewAlreadySettledError(o.ID, o.State)
	}

	o.ProtestStatus = ProtestFiled
	o.ProtestFiledAt = &at
	return true, nil
}

// RecordDeliveryStatus keeps the carrier's status for audit.
func (o *Order) RecordDeliveryStatus(status string) {
	normalized := NormalizeDeliveryStatus(status)
	if normalized == "" {
		return
	}
	o.DeliveryStatus = &normalized
}

// CanTransitionTo checks the settlement state table.
func (o *Order) CanTransitionTo(target OrderState) error {
	allowed, ok := transitions[o.State]
	if !ok || !slices.Contains(allowed, target) {
		return NewInvalidTransitionError(o.State, target)
	}
	return nil
}

func (o *Order) transition(target OrderState) error {
	if err := o.CanTransitionTo(target); err != nil {
		return err
	}
	o.State = target
	return nil
}

// captured and released are terminal.
var transitions = map[OrderState][]OrderState{
	StateRequiresCapture: {StateCaptured, StateReleased, StateDisputed},
	StateDisputed:        {StateCaptured, StateReleased},
}
