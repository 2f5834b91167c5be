package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/pallybot/internal/auth"
	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/workspace"
)

// ErrValidation indicates a malformed request body.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return "validation error: " + e.Field + " - " + e.Message
}

// HTTPStatus returns the HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		validation   *workspace.ValidationError
		unknown      *workspace.UnknownReferenceError
		notAuth      *workspace.NotAuthenticatedError
		authProvider *workspace.AuthCollaboratorError
		emailTaken   *auth.ErrEmailAlreadyExists
		badCreds     *auth.ErrInvalidCredentials
		badToken     *auth.ErrInvalidToken
		noUser       *auth.ErrUserNotFound
		reqErr       *ErrValidation
		payload      *intake.PayloadError
		fetchErr     *fetch.Error
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &reqErr), errors.As(err, &payload):
		return http.StatusBadRequest
	case errors.As(err, &unknown), errors.As(err, &noUser):
		return http.StatusNotFound
	case errors.As(err, &notAuth), errors.As(err, &badCreds), errors.As(err, &badToken):
		return http.StatusUnauthorized
	case errors.As(err, &emailTaken):
		return http.StatusConflict
	case errors.Is(err, intake.ErrEmptyPosting):
		return http.StatusUnprocessableEntity
	case errors.As(err, &authProvider), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope. Notice is the text clients show to the user.
type errorBody struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

// notice returns the user-facing text for err.
func notice(err error) string {
	var (
		emailTaken *auth.ErrEmailAlreadyExists
		badCreds   *auth.ErrInvalidCredentials
		badToken   *auth.ErrInvalidToken
		reqErr     *ErrValidation
		payload    *intake.PayloadError
		fetchErr   *fetch.Error
	)

	switch {
	case errors.As(err, &emailTaken):
		return "An account with that email already exists."
	case errors.As(err, &badCreds):
		return "Invalid email or password."
	case errors.As(err, &badToken):
		return "Your session has ended. Please sign in again."
	case errors.As(err, &reqErr):
		return fmt.Sprintf("Please provide a valid %s.", reqErr.Field)
	case errors.As(err, &payload):
		return "The job description could not be read."
	case errors.Is(err, intake.ErrEmptyPosting):
		return "No job description text was found."
	case errors.As(err, &fetchErr):
		return "The job posting could not be fetched."
	default:
		return workspace.Notice(err)
	}
}
