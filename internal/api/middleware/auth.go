package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/larsfl/trailside/internal/api/response"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Auth returns middleware that validates the session JWT issued by the
// hosted auth provider (HS256, shared secret) and injects the subject —
// the local user id — into the request context.
func Auth(secret []byte, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			raw := strings.TrimPrefix(authHeader, "Bearer ")
			if raw == authHeader {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			userID, err := validateSessionToken(raw, secret, issuer)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateSessionToken(raw string, secret []byte, issuer string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return sub, nil
}

// UserID extracts the authenticated user id from the request context.
// Empty when the request did not pass through Auth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID returns a context carrying the given user id. Used by tests
// that exercise handlers without the full middleware stack.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
