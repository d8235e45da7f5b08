package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

const maxWebhookBody = 1 << 20

// DeliveryPayload accepts both carrier shapes: the flat
// {"order_id","listing_id","status"} form and the nested
// {"action","parcel":{"order_number","status":{"message"}}} form. Fields of
// an unexpected type decode as empty rather than failing the request.
type DeliveryPayload struct {
	OrderID   looseString `json:"order_id"`
	ListingID looseString `json:"listing_id"`
	Status    looseString `json:"status"`

	Event  looseString   `json:"event"`
	Action looseString   `json:"action"`
	Data   parcelPayload `json:"data"`
	Parcel parcelPayload `json:"parcel"`
}

type parcelPayload struct {
	OrderID     looseString `json:"order_id"`
	OrderNumber looseString `json:"order_number"`
	ListingID   looseString `json:"listing_id"`
	Status      looseString `json:"status"`
}

// UnmarshalJSON leaves the parcel empty when the value is not an object.
func (p *parcelPayload) UnmarshalJSON(b []byte) error {
	type plain parcelPayload
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		*p = parcelPayload{}
		return nil
	}
	*p = parcelPayload(out)
	return nil
}

// looseString takes a string, a number, or an object carrying "message".
// Any other value decodes as "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	*s = ""

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = looseString(num.String())
		return nil
	}

	var obj struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && len(obj.Message) > 0 {
		var msg string
		if json.Unmarshal(obj.Message, &msg) == nil {
			*s = looseString(msg)
		}
	}
	return nil
}

// ToEvent normalizes the payload. Top-level fields win over nested ones, the
// parcel wins over data, and a bare event name stands in for a missing status.
func (p DeliveryPayload) ToEvent() domain.DeliveryEvent {
	orderID := firstNonEmpty(
		string(p.OrderID),
		string(p.Parcel.OrderID), string(p.Parcel.OrderNumber),
		string(p.Data.OrderID), string(p.Data.OrderNumber),
	)
	listingID := firstNonEmpty(string(p.ListingID), string(p.Parcel.ListingID), string(p.Data.ListingID))
	status := firstNonEmpty(string(p.Status), string(p.Parcel.Status), string(p.Data.Status), string(p.Event))

	return domain.NewDeliveryEvent(orderID, listingID, status)
}

// DeliveryWebhook acknowledges every JSON carrier event. Only bodies that are
// not JSON, unresolvable orders and internal failures return an error status.
func (h *Handlers) DeliveryWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if !json.Valid(body) {
		rest.WriteError(w, application.NewInvalidInputError(errors.New("body is not valid JSON")), h.logger)
		return
	}

	// A JSON value that is not an object carries nothing to act on and is
	// acknowledged as an ignored event.
	var payload DeliveryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Debug("delivery webhook body is not an object", "error", err)
		payload = DeliveryPayload{}
	}

	result, err := h.delivery.Handle(r.Context(), payload.ToEvent(), h.clock.Now())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondJSON(w, http.StatusOK, result)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
