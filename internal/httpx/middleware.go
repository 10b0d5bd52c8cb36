package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/yacosta738/go-shopping-cart/internal/auth"
)

type ctxKey int

const userIDKey ctxKey = 0

// RequireAuth verifies the bearer token and stashes the caller's user id in
// the request context.
func RequireAuth(tokens *auth.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw := strings.TrimPrefix(header, "Bearer ")
			if header == "" || raw == header {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}
			userID, err := tokens.Verify(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID returns the authenticated caller, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	s, _ := ctx.Value(userIDKey).(string)
	return s
}
