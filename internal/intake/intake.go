// Package intake turns raw job postings (JSON payloads, pasted HTML or a posting URL) into the
// validated input the workspace catalog accepts.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/schemas"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/sirupsen/logrus"
)

// PageFetcher loads the readable text of a posting URL.
type PageFetcher interface {
	Page(ctx context.Context, url string) (*fetch.Page, error)
}

// Option configures an Intake.
type Option func(*Intake)

// WithExtractor sets the keyword extractor.
func WithExtractor(e Extractor) Option {
	return func(in *Intake) { in.extractor = e }
}

// WithFetcher sets the fetcher used by FromURL.
func WithFetcher(f PageFetcher) Option {
	return func(in *Intake) { in.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(in *Intake) { in.log = logger }
}

// Intake converts postings into types.JobDescriptionInput. It does not validate that title and
// company are present; the catalog does that when the job is added.
type Intake struct {
	extractor Extractor
	fetcher   PageFetcher
	log       logrus.FieldLogger
}

// New creates an Intake using the heuristic extractor and a default fetcher.
func New(opts ...Option) *Intake {
	in := &Intake{
		extractor: HeuristicExtractor{},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.fetcher == nil {
		in.fetcher = fetch.New(fetch.DefaultOptions(), fetch.WithLogger(in.log))
	}
	return in
}

// Hints are values supplied by the user alongside a posting. They win over extracted values.
type Hints struct {
	Title   string
	Company string
}

// FromJSON validates raw against the job description schema and decodes it. Keywords are
// extracted from the description when the payload has none.
func (in *Intake) FromJSON(ctx context.Context, raw []byte) (types.JobDescriptionInput, error) {
	if err := schemas.Validate(schemas.JobDescription, raw); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			first := ve.First()
			return types.JobDescriptionInput{}, &PayloadError{Field: first.Field, Message: first.Message, Cause: err}
		}
		return types.JobDescriptionInput{}, &PayloadError{Field: "(root)", Message: "payload is not valid JSON", Cause: err}
	}

	var payload types.JobDescriptionInput
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.JobDescriptionInput{}, &PayloadError{Field: "(root)", Message: err.Error(), Cause: err}
	}

	return in.complete(ctx, Hints{Title: payload.Title, Company: payload.Company}, payload.Description, payload.Keywords)
}

// FromText builds an input from plain posting text.
func (in *Intake) FromText(ctx context.Context, hints Hints, text string) (types.JobDescriptionInput, error) {
	return in.complete(ctx, hints, text, nil)
}

// FromHTML extracts the posting text from an HTML document.
func (in *Intake) FromHTML(ctx context.Context, hints Hints, html string) (types.JobDescriptionInput, error) {
	text, err := fetch.ExtractMainText(html, fetch.JobPostingSelectors(), fetch.NoiseSelectors(fetch.PlatformUnknown)...)
	if err != nil {
		return types.JobDescriptionInput{}, fmt.Errorf("failed to read posting HTML: %w", err)
	}
	return in.complete(ctx, hints, text, nil)
}

// FromURL fetches the posting at url.
func (in *Intake) FromURL(ctx context.Context, hints Hints, url string) (types.JobDescriptionInput, error) {
	page, err := in.fetcher.Page(ctx, url)
	if err != nil {
		return types.JobDescriptionInput{}, err
	}
	in.log.WithFields(logrus.Fields{
		"url":      url,
		"platform": page.Platform,
		"rendered": page.Rendered,
	}).Info("fetched job posting")
	return in.complete(ctx, hints, page.Text, nil)
}

func (in *Intake) complete(ctx context.Context, hints Hints, text string, keywords []string) (types.JobDescriptionInput, error) {
	description := CleanText(text)
	if description == "" {
		return types.JobDescriptionInput{}, ErrEmptyPosting
	}

	input := types.JobDescriptionInput{
		Title:       strings.TrimSpace(hints.Title),
		Company:     strings.TrimSpace(hints.Company),
		Description: description,
		Keywords:    NormalizeKeywords(keywords),
	}

	if len(input.Keywords) > 0 && input.Title != "" && input.Company != "" {
		return input, nil
	}

	found, err := in.extractor.Extract(ctx, description)
	if err != nil {
		// keywords are optional; the posting is still usable
		in.log.WithError(err).Warn("keyword extraction failed")
		return input, nil
	}
	if input.Title == "" {
		input.Title = found.Title
	}
	if input.Company == "" {
		input.Company = found.Company
	}
	if len(input.Keywords) == 0 {
		input.Keywords = NormalizeKeywords(found.Keywords)
	}
	return input, nil
}
