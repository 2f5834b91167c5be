package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"workspace validation", &workspace.ValidationError{Field: "title", Message: "is required"}, http.StatusBadRequest},
		{"request validation", &ErrValidation{Field: "type", Message: "unknown"}, http.StatusBadRequest},
		{"intake payload", &intake.PayloadError{Field: "description", Message: "required"}, http.StatusBadRequest},
		{"unknown job", &workspace.UnknownReferenceError{ID: uuid.New()}, http.StatusNotFound},
		{"unknown user", &auth.ErrUserNotFound{UserID: uuid.New()}, http.StatusNotFound},
		{"not authenticated", &workspace.NotAuthenticatedError{Action: "add_job"}, http.StatusUnauthorized},
		{"bad credentials", &auth.ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"bad token", &auth.ErrInvalidToken{Reason: "expired"}, http.StatusUnauthorized},
		{"email taken", &auth.ErrEmailAlreadyExists{Email: "a@example.com"}, http.StatusConflict},
		{"empty posting", fmt.Errorf("intake: %w", intake.ErrEmptyPosting), http.StatusUnprocessableEntity},
		{"auth provider", &workspace.AuthCollaboratorError{Op: "logout", Cause: errors.New("timeout")}, http.StatusBadGateway},
		{"fetch", &fetch.Error{URL: "https://example.com", Message: "HTTP status 500"}, http.StatusBadGateway},
		{"wrapped", fmt.Errorf("dispatch: %w", &workspace.UnknownReferenceError{}), http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotice(t *testing.T) {
	assert.Equal(t, "Invalid email or password.", notice(&auth.ErrInvalidCredentials{}))
	assert.Equal(t, "Please provide a valid email.", notice(&ErrValidation{Field: "email"}))
	assert.Equal(t, "Your session has ended. Please sign in again.", notice(&auth.ErrInvalidToken{Reason: "expired"}))
	assert.Equal(t, "Your session has ended. Please sign in again.", notice(&workspace.NotAuthenticatedError{}))
	assert.Equal(t, "Logout failed. Please try again.", notice(&workspace.AuthCollaboratorError{Op: "logout"}))
	assert.Equal(t, "Something went wrong.", notice(errors.New("boom")))
}
