package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const callerKey contextKey = "caller"

// TokenCookie is the cookie that may carry the session token instead of
// the Authorization header
const TokenCookie = "token"

// TokenValidator resolves a session token to a current caller
type TokenValidator interface {
	Authenticate(ctx context.Context, token string) (services.Caller, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The token is
// read from "Authorization: Bearer <token>" or, failing that, the token cookie.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromRequest(r)
			if !ok {
				respondError(w, "Please log in first", http.StatusUnauthorized)
				return
			}

			caller, err := validator.Authenticate(r.Context(), token)
			if err != nil {
				var persistenceErr *services.PersistenceError
				if errors.As(err, &persistenceErr) {
					log.Error().Err(err).Msg("Failed to resolve caller")
					respondError(w, "Server error", http.StatusInternalServerError)
					return
				}
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers without the admin role. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetCaller(r.Context()).Role != models.RoleAdmin {
			respondError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, caller services.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// GetCaller extracts the caller from context; the zero value means anonymous
func GetCaller(ctx context.Context) services.Caller {
	caller, ok := ctx.Value(callerKey).(services.Caller)
	if !ok {
		return services.Caller{}
	}
	return caller
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return GetCaller(ctx).ID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
