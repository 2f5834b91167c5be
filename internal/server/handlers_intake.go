package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonathan/pallybot/internal/fetch"
	"github.com/jonathan/pallybot/internal/intake"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/sirupsen/logrus"
)

// Intake sources.
const (
	sourceJSON = "json"
	sourceHTML = "html"
	sourceURL  = "url"
	sourceText = "text"
)

// intakeRequest is the body of POST /workspace/jobs/intake. Source selects which of the other
// fields carries the posting; Title and Company override extracted values.
type intakeRequest struct {
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload,omitempty"`
	HTML    string          `json:"html,omitempty"`
	URL     string          `json:"url,omitempty"`
	Text    string          `json:"text,omitempty"`
	Title   string          `json:"title,omitempty"`
	Company string          `json:"company,omitempty"`
}

var errInvalidSource = errors.New("invalid intake source")

// handleIntake turns a posting into a job description and adds it to the catalog.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.session(w, r)
	if !ok {
		return
	}

	var req intakeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	switch req.Source {
	case sourceJSON, sourceHTML, sourceURL, sourceText:
	default:
		s.metrics.observeIntake("invalid", errInvalidSource)
		s.errorResponse(w, &ErrValidation{Field: "source", Message: "must be one of json, html, url, text"})
		return
	}

	input, err := s.runIntake(r, &req)
	if err != nil {
		s.metrics.observeIntake(req.Source, err)
		s.log.WithFields(logrus.Fields{
			"session_id": ws.ID,
			"source":     req.Source,
		}).WithError(err).Info("intake failed")
		s.errorResponse(w, err)
		return
	}

	result, err := ws.Controller.Dispatch(r.Context(), workspace.AddJob{Input: input})
	s.metrics.observeIntake(req.Source, err)
	s.metrics.observeAction(workspace.AddJob{}.Name(), err)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

func (s *Server) runIntake(r *http.Request, req *intakeRequest) (types.JobDescriptionInput, error) {
	hints := intake.Hints{Title: req.Title, Company: req.Company}
	ctx := r.Context()

	switch req.Source {
	case sourceJSON:
		if len(req.Payload) == 0 {
			return types.JobDescriptionInput{}, &ErrValidation{Field: "payload", Message: "required for json intake"}
		}
		input, err := s.intake.FromJSON(ctx, req.Payload)
		if err != nil {
			return input, err
		}
		if hints.Title != "" {
			input.Title = hints.Title
		}
		if hints.Company != "" {
			input.Company = hints.Company
		}
		return input, nil
	case sourceHTML:
		if req.HTML == "" {
			return types.JobDescriptionInput{}, &ErrValidation{Field: "html", Message: "required for html intake"}
		}
		return s.intake.FromHTML(ctx, hints, req.HTML)
	case sourceURL:
		if req.URL == "" {
			return types.JobDescriptionInput{}, &ErrValidation{Field: "url", Message: "required for url intake"}
		}
		if err := fetch.ValidateURL(req.URL); err != nil {
			return types.JobDescriptionInput{}, &ErrValidation{Field: "url", Message: "must be an absolute http or https URL"}
		}
		return s.intake.FromURL(ctx, hints, req.URL)
	case sourceText:
		if req.Text == "" {
			return types.JobDescriptionInput{}, &ErrValidation{Field: "text", Message: "required for text intake"}
		}
		return s.intake.FromText(ctx, hints, req.Text)
	default:
		return types.JobDescriptionInput{}, &ErrValidation{Field: "source", Message: "must be one of json, html, url, text"}
	}
}
