package handlers

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
)

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	var orderID string
	err := runtime.BindStyledParameterWithOptions("simple", "orderId", r.PathValue("orderId"), &orderID,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	details, err := h.orders.GetOrder(r.Context(), orderID, middleware.BuyerIDFromContext(r.Context()))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondJSON(w, http.StatusOK, rest.ToAPIOrderDetails(details))
}
