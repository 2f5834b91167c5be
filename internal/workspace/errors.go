package workspace

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError indicates malformed input, such as a job description missing a required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// UnknownReferenceError indicates a job description id that is not in the catalog.
type UnknownReferenceError struct {
	ID uuid.UUID
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown job description: %s", e.ID)
}

// NotAuthenticatedError indicates an action dispatched outside an authenticated session.
type NotAuthenticatedError struct {
	Action string
}

func (e *NotAuthenticatedError) Error() string {
	if e.Action == "" {
		return "not authenticated"
	}
	return fmt.Sprintf("not authenticated: %s rejected", e.Action)
}

// AuthCollaboratorError indicates the authentication provider failed an operation.
type AuthCollaboratorError struct {
	Op    string
	Cause error
}

func (e *AuthCollaboratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth provider %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("auth provider %s failed", e.Op)
}

func (e *AuthCollaboratorError) Unwrap() error {
	return e.Cause
}

// Notice converts an error into the short, user-facing notification text shown by clients.
func Notice(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	var unknownErr *UnknownReferenceError
	var notAuthErr *NotAuthenticatedError
	var authErr *AuthCollaboratorError

	switch {
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Please provide a %s.", validationErr.Field)
	case errors.As(err, &unknownErr):
		return "That job description no longer exists."
	case errors.As(err, &notAuthErr):
		return "Your session has ended. Please sign in again."
	case errors.As(err, &authErr):
		if authErr.Op == "logout" {
			return "Logout failed. Please try again."
		}
		return "Authentication service is unavailable."
	default:
		return "Something went wrong."
	}
}
