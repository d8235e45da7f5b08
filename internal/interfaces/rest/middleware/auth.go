package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest"
)

type buyerIDKey struct{}

// BuyerIDFromContext returns the authenticated buyer, or "" when the request
// did not pass BuyerAuth.
func BuyerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(buyerIDKey{}).(string)
	return id
}

// WithBuyerID is used by tests and by BuyerAuth.
func WithBuyerID(ctx context.Context, buyerID string) context.Context {
	return context.WithValue(ctx, buyerIDKey{}, buyerID)
}

// TokenValidator checks HS256 bearer tokens. The subject is the buyer ID.
type TokenValidator struct {
	secret []byte
	issuer string
}

func NewTokenValidator(cfg config.AuthConfig) *TokenValidator {
	return &TokenValidator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

func (v *TokenValidator) Validate(tokenStr string) (string, error) {
	if len(v.secret) == 0 {
		return "", application.ErrAuthNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}

	return claims.Subject, nil
}

// BuyerAuth rejects requests without a valid bearer token and stores the
// token subject as the buyer ID.
func BuyerAuth(validator *TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				rest.WriteError(w, application.ErrUnauthenticated, nil)
				return
			}

			buyerID, err := validator.Validate(tokenStr)
			if err != nil {
				if errors.Is(err, application.ErrAuthNotConfigured) {
					rest.WriteError(w, application.NewConfigurationError(err), nil)
					return
				}
				rest.WriteError(w, application.NewUnauthorizedError("Invalid or expired token"), nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithBuyerID(r.Context(), buyerID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
