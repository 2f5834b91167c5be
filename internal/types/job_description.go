// Package types provides type definitions shared by the workspace, intake, auth and server packages.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// previewLength is the number of description characters shown on a job card.
const previewLength = 150

// JobDescriptionInput is the payload the intake collaborator hands to the catalog.
type JobDescriptionInput struct {
	Title       string   `json:"title" validate:"required,notblank"`
	Company     string   `json:"company" validate:"required,notblank"`
	Description string   `json:"description" validate:"required,notblank"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Validate checks that all required text fields are present and not only whitespace.
func (in *JobDescriptionInput) Validate() error {
	return Validator().Struct(in)
}

// JobDescription is an immutable catalog record.
type JobDescription struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a copy that shares no memory with the receiver.
func (j JobDescription) Clone() JobDescription {
	out := j
	out.Keywords = make([]string, len(j.Keywords))
	copy(out.Keywords, j.Keywords)
	return out
}

// OptionLabel is the text shown for the job in the interview job picker.
func (j JobDescription) OptionLabel() string {
	return fmt.Sprintf("%s at %s", j.Title, j.Company)
}

// Preview returns the first 150 characters of the description followed by an ellipsis.
func (j JobDescription) Preview() string {
	if utf8.RuneCountInString(j.Description) <= previewLength {
		return j.Description + "..."
	}
	runes := []rune(j.Description)
	return string(runes[:previewLength]) + "..."
}

// Summary builds the card view of the job.
func (j JobDescription) Summary() JobSummary {
	return JobSummary{
		ID:           j.ID,
		Title:        j.Title,
		Company:      j.Company,
		Preview:      j.Preview(),
		AddedOn:      j.CreatedAt.Format("2006-01-02"),
		KeywordCount: len(j.Keywords),
	}
}

// JobSummary is the card representation of a job description in the jobs tab.
type JobSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Preview      string    `json:"preview"`
	AddedOn      string    `json:"added_on"`
	KeywordCount int       `json:"keyword_count"`
}
