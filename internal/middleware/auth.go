package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// Verifier resolves a bearer token to its user and session.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.User, *models.Session, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// authenticated user and session in the request context.
func AuthMiddleware(v Verifier, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			user, session, err := v.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if !errors.Is(err, models.ErrInvalidSession) {
					log.Errorf("Failed to verify session: %v", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
					return
				}
				unauthorized(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// UserFromContext returns the authenticated user, or nil outside AuthMiddleware.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// SessionFromContext returns the current session, or nil outside AuthMiddleware.
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// WithUser attaches user and session to ctx the way AuthMiddleware does.
func WithUser(ctx context.Context, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionKey, session)
}
