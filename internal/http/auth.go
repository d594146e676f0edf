package http

import (
	"context"
	"net/http"
	"strings"

	"saldo/internal/log"
)

type contextKey string

const contextKeyUser contextKey = "user_id"

// TokenAuthenticator resolves a bearer token to a user id.
type TokenAuthenticator interface {
	Authenticate(token string) (string, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's user id in the request context.
func AuthMiddleware(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format")
				return
			}

			userID, err := auth.Authenticate(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUser, userID)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated caller, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUser).(string)
	return id
}
