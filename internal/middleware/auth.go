package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
)

type ctxKey int

const userIDKey ctxKey = iota

// Authenticator resolves a session token. services.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// BearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a WebSocket upgrade, so GET requests may pass ?token= instead.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

// RequireAuth rejects requests without a valid session and stores the user
// id in the request context.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			userID, err := a.Authenticate(r.Context(), token)
			if err != nil {
				ae := apierr.From(err)
				if errors.Is(err, apierr.ErrUnauthorized) {
					writeError(w, ae.Status, ae.Code, "Session expired. Please sign in again.")
					return
				}
				writeError(w, ae.Status, ae.Code, "Could not verify session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated user set by RequireAuth.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
