package workspace

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "validation error: title - is required", (&ValidationError{Field: "title", Message: "is required"}).Error())
	assert.Equal(t, "unknown job description: "+id.String(), (&UnknownReferenceError{ID: id}).Error())
	assert.Equal(t, "not authenticated", (&NotAuthenticatedError{}).Error())
	assert.Equal(t, "not authenticated: add_job rejected", (&NotAuthenticatedError{Action: "add_job"}).Error())
	assert.Equal(t, "auth provider logout failed", (&AuthCollaboratorError{Op: "logout"}).Error())

	cause := errors.New("timeout")
	err := &AuthCollaboratorError{Op: "logout", Cause: cause}
	assert.Equal(t, "auth provider logout failed: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Field: "title"}, "Please provide a title."},
		{"unknown", &UnknownReferenceError{ID: uuid.New()}, "That job description no longer exists."},
		{"not authenticated", &NotAuthenticatedError{Action: "add_job"}, "Your session has ended. Please sign in again."},
		{"logout", &AuthCollaboratorError{Op: "logout"}, "Logout failed. Please try again."},
		{"auth other", &AuthCollaboratorError{Op: "subscribe"}, "Authentication service is unavailable."},
		{"wrapped", fmt.Errorf("dispatch: %w", &UnknownReferenceError{}), "That job description no longer exists."},
		{"other", errors.New("boom"), "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Notice(tt.err))
		})
	}
}
