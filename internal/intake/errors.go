package intake

import (
	"errors"
	"fmt"
)

// ErrEmptyPosting is returned when a source yields no description text.
var ErrEmptyPosting = errors.New("job posting has no description text")

// PayloadError reports an intake payload that does not match the job description schema.
type PayloadError struct {
	Field   string
	Message string
	Cause   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid job description payload: %s: %s", e.Field, e.Message)
}

func (e *PayloadError) Unwrap() error {
	return e.Cause
}

// APICallError represents a failed call to the extraction model.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents a model response that could not be decoded.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
