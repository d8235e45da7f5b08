package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

// Timeout bounds each request. Handlers see the deadline on r.Context(), so
// store and gateway calls stop with it.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body := timeoutBody()

	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, body)
	}
}

func timeoutBody() string {
	timeoutErr := application.NewTimeoutError()
	b, _ := json.Marshal(rest.ErrorResponse{
		Success: false,
		Error: rest.ErrorDetail{
			Code:    timeoutErr.Code,
			Message: timeoutErr.Message,
		},
	})
	return string(b)
}
