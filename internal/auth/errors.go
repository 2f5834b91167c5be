package auth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrInvalidToken indicates a bearer token that cannot be used.
type ErrInvalidToken struct {
	Reason string
	Cause  error
}

func (e *ErrInvalidToken) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid token: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid token: %s", e.Reason)
}

func (e *ErrInvalidToken) Unwrap() error {
	return e.Cause
}

// ErrSessionExpired is delivered with the unauthenticated update when a session's token expires.
var ErrSessionExpired = errors.New("session expired")
