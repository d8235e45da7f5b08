package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

// RequestValidator checks documented routes against the OpenAPI document.
// Authentication is left to the route guards, and undocumented paths pass
// through to the mux.
func RequestValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	// Routes are matched on the path alone, whatever host serves them.
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				var routeErr *routers.RouteError
				if errors.As(err, &routeErr) {
					next.ServeHTTP(w, r)
					return
				}
				rest.WriteError(w, application.NewInternalError(err), logger)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Info("request failed openapi validation",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
				)
				rest.WriteError(w, application.NewInvalidInputError(validationReason(err)), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationReason condenses a validation failure to the offending field and
// a one-line reason. The full error, which embeds the schema, is only logged.
func validationReason(err error) error {
	var schemaErr *openapi3.SchemaError
	hasSchemaErr := errors.As(err, &schemaErr)

	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		if hasSchemaErr {
			return errors.New(schemaErr.Reason)
		}
		return errors.New("request does not match the API description")
	}

	reason := reqErr.Reason
	if hasSchemaErr && schemaErr.Reason != "" {
		reason = schemaErr.Reason
	}

	switch {
	case reqErr.Parameter != nil:
		return fmt.Errorf("parameter %q: %s", reqErr.Parameter.Name, reason)
	case hasSchemaErr:
		if field := strings.Join(schemaErr.JSONPointer(), "."); field != "" {
			return fmt.Errorf("request body %s: %s", field, reason)
		}
		return fmt.Errorf("request body: %s", reason)
	case reason != "":
		return errors.New(reason)
	default:
		return errors.New("request does not match the API description")
	}
}
