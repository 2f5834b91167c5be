// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	userIDKey    ContextKey = "userID"
	sessionIDKey ContextKey = "sessionID"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (SessionClaims, error)
}

// SessionClaims identifies the user and workspace session a token was issued for.
type SessionClaims interface {
	GetUserID() uuid.UUID
	GetSessionID() uuid.UUID
}

// Unauthorized writes the response sent for missing or rejected credentials.
type Unauthorized func(w http.ResponseWriter, r *http.Request, reason string)

func defaultUnauthorized(w http.ResponseWriter, _ *http.Request, _ string) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// AuthMiddleware validates the bearer token and stores the user and session IDs in the request
// context. onFail may be nil.
func AuthMiddleware(validator TokenValidator, onFail Unauthorized) func(http.Handler) http.Handler {
	if onFail == nil {
		onFail = defaultUnauthorized
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				onFail(w, r, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				onFail(w, r, err.Error())
				return
			}
			if claims.GetSessionID() == uuid.Nil {
				onFail(w, r, "token has no session")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.GetUserID())
			ctx = context.WithValue(ctx, sessionIDKey, claims.GetSessionID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header. The scheme is
// matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in request context")
	}
	return userID, nil
}

// GetSessionID extracts the workspace session ID from the request context.
func GetSessionID(r *http.Request) (uuid.UUID, error) {
	sessionID, ok := r.Context().Value(sessionIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("session ID not found in request context")
	}
	return sessionID, nil
}

// WithSession returns ctx carrying the given IDs, as AuthMiddleware would.
func WithSession(ctx context.Context, userID, sessionID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
