package domain

import "strings"

// DeliveryKind tags a carrier event. Only DeliveryDelivered is actionable.
type DeliveryKind int

const (
	DeliveryOther DeliveryKind = iota
	DeliveryDelivered
)

func (k DeliveryKind) String() string {
	if k == DeliveryDelivered {
		return "delivered"
	}
	return "other"
}

// DeliveryEvent is the shape-independent form of an inbound carrier webhook.
type DeliveryEvent struct {
	Kind      DeliveryKind
	OrderID   string
	ListingID string
	// Status is the normalized carrier status, kept for audit.
	Status string
}

// NewDeliveryEvent normalizes the correlation keys and status of a carrier
// notification into a tagged event.
func NewDeliveryEvent(orderID, listingID, status string) DeliveryEvent {
	normalized := NormalizeDeliveryStatus(status)

	kind := DeliveryOther
	if normalized == DeliveredStatus {
		kind = DeliveryDelivered
	}

	return DeliveryEvent{
		Kind:      kind,
		OrderID:   strings.TrimSpace(orderID),
		ListingID: strings.TrimSpace(listingID),
		Status:    normalized,
	}
}

func (e DeliveryEvent) Delivered() bool {
	return e.Kind == DeliveryDelivered
}

// HasCorrelation reports whether the event names an order or a listing.
func (e DeliveryEvent) HasCorrelation() bool {
	return e.OrderID != "" || e.ListingID != ""
}

// NormalizeDeliveryStatus lowercases and collapses whitespace so "Delivered",
// " delivered " and "DELIVERED" compare equal.
func NormalizeDeliveryStatus(status string) string {
	return strings.ToLower(strings.Join(strings.Fields(status), " "))
}
