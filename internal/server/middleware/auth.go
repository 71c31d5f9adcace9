// Package middleware provides HTTP middleware for bearer-token authentication.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// userIDKey is the context key for storing the authenticated user ID.
const userIDKey ContextKey = "userID"

// ErrNoUser is returned by GetUserID when the request carries no authenticated user.
var ErrNoUser = errors.New("user ID not found in request context")

var errBadHeader = errors.New("malformed authorization header")

// TokenValidator validates bearer tokens. Implemented by the server's JWT service adapter.
type TokenValidator interface {
	ValidateToken(tokenString string) (UserIDGetter, error)
}

// UserIDGetter is an interface for extracting user ID from token claims.
type UserIDGetter interface {
	GetUserID() uuid.UUID
}

// AuthMiddleware rejects requests without a valid bearer token and puts the user ID in the context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := authenticate(validator, r)
			if err != nil || !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth lets anonymous requests through but rejects a present, invalid token.
// Searches use it so results can be reconciled against the caller's saved recipes.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := authenticate(validator, r)
			if err != nil {
				unauthorized(w)
				return
			}
			if ok {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate returns ok=false with a nil error when no Authorization header is present.
func authenticate(validator TokenValidator, r *http.Request) (uuid.UUID, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return uuid.Nil, false, nil
	}
	if validator == nil {
		return uuid.Nil, false, errors.New("authentication is not configured")
	}

	// Handle case-insensitive "Bearer" prefix
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return uuid.Nil, false, errBadHeader
	}

	claims, err := validator.ValidateToken(parts[1])
	if err != nil {
		return uuid.Nil, false, err
	}
	return claims.GetUserID(), true, nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="recipe-share"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	return userID, nil
}

// OptionalUserID returns the authenticated user ID, or nil for anonymous requests.
func OptionalUserID(r *http.Request) *uuid.UUID {
	userID, err := GetUserID(r)
	if err != nil {
		return nil
	}
	return &userID
}
