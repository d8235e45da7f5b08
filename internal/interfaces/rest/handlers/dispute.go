package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
)

const maxProtestBody = 64 << 10

type ProtestRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

var validate = validator.New()

func (h *Handlers) FileProtest(w http.ResponseWriter, r *http.Request) {
	var req ProtestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProtestBody)).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	order, err := h.disputes.FileProtest(
		r.Context(),
		req.OrderID,
		middleware.BuyerIDFromContext(r.Context()),
		h.clock.Now(),
	)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondJSON(w, http.StatusOK, rest.ToAPIOrder(order))
}
