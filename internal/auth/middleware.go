package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bher20/eimpactmanager/internal/storage"
)

type contextKey string

const (
	TokenContextKey  contextKey = "token"
	RoleContextKey   contextKey = "role"
	UserIDContextKey contextKey = "user_id"
)

// WithUserID returns ctx carrying the acting user's id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserID returns the acting user's id, or "" when the request is anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDContextKey).(string)
	return id
}

// Middleware resolves a bearer token into the request context. Requests
// without an Authorization header pass through anonymously.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, tokenValue, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenValue == "" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := s.ValidateToken(r.Context(), tokenValue)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), TokenContextKey, token)
		ctx = context.WithValue(ctx, RoleContextKey, token.Role)
		ctx = WithUserID(ctx, token.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) RequirePermission(obj, act string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := r.Context().Value(TokenContextKey).(*storage.Token)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		allowed, err := s.Enforce(token.UserID, obj, act)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
