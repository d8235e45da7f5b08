package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

type APIResponse struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// Order is the buyer-facing view of an order. The hold reference stays internal.
type Order struct {
	ID             string       `json:"id"`
	ListingID      string       `json:"listing_id"`
	BuyerID        string       `json:"buyer_id"`
	State          string       `json:"state"`
	ProtestStatus  string       `json:"protest_status"`
	CaptureAfter   time.Time    `json:"capture_after"`
	DeliveryStatus string       `json:"delivery_status,omitempty"`
	ReleasedAt     *time.Time   `json:"released_at,omitempty"`
	ProtestFiledAt *time.Time   `json:"protest_filed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	Events         []OrderEvent `json:"events,omitempty"`
}

type OrderEvent struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func ToAPIOrder(o *domain.Order) Order {
	apiOrder := Order{
		ID:             o.ID,
		ListingID:      o.ListingID,
		BuyerID:        o.BuyerID,
		State:          string(o.State),
		ProtestStatus:  string(o.ProtestStatus),
		CaptureAfter:   o.CaptureAfter,
		ReleasedAt:     o.ReleasedAt,
		ProtestFiledAt: o.ProtestFiledAt,
		CreatedAt:      o.CreatedAt,
	}

	if o.DeliveryStatus != nil {
		apiOrder.DeliveryStatus = *o.DeliveryStatus
	}

	return apiOrder
}

func ToAPIOrderDetails(details *services.OrderDetails) Order {
	apiOrder := ToAPIOrder(details.Order)

	apiOrder.Events = make([]OrderEvent, 0, len(details.Events))
	for _, e := range details.Events {
		apiOrder.Events = append(apiOrder.Events, OrderEvent{
			Kind:       string(e.Kind),
			Detail:     e.Detail,
			OccurredAt: e.OccurredAt,
		})
	}

	return apiOrder
}
