package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

// CaptureDue runs one capture sweep. Scheduled callers hit it on an interval.
func (h *Handlers) CaptureDue(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Run(r.Context(), h.clock.Now())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondJSON(w, http.StatusOK, result)
}
