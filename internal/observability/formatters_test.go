package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
	"github.com/jonathan/pallybot/internal/workspace"
	"github.com/stretchr/testify/assert"
)

func authenticatedView(tab workspace.TabID, jobs ...types.JobDescription) workspace.View {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return workspace.View{
		Session: workspace.SessionState{
			Phase: workspace.PhaseAuthenticated,
			User:  &types.SessionUser{Email: "jo@example.com", CreatedAt: &created},
		},
		Workspace: &workspace.WorkspaceView{ActiveTab: tab, Jobs: jobs},
	}
}

func TestPrintView_Unauthenticated(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintView(workspace.View{Session: workspace.SessionState{Phase: workspace.PhaseUnauthenticated}})

	out := buf.String()
	assert.Contains(t, out, "unauthenticated")
	assert.Contains(t, out, "Sign in")
}

func TestPrintView_InterviewEmptyCatalog(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintView(authenticatedView(workspace.TabInterview))

	out := buf.String()
	assert.Contains(t, out, "Signed in as jo@example.com")
	assert.Contains(t, out, "[Interview Practice]")
	assert.Contains(t, out, "No job descriptions yet")
	assert.NotContains(t, out, workspace.NoJobSelectedLabel)
}

func TestPrintView_InterviewWithSelection(t *testing.T) {
	job := types.JobDescription{ID: uuid.New(), Title: "Backend Engineer", Company: "Acme", Keywords: []string{"Go", "SQL"}}
	v := authenticatedView(workspace.TabInterview, job)
	v.Workspace.SelectedID = &job.ID

	var buf bytes.Buffer
	NewPrinter(&buf).PrintView(v)

	out := buf.String()
	assert.Contains(t, out, workspace.NoJobSelectedLabel)
	assert.Contains(t, out, "* 1. Backend Engineer at Acme")
	assert.Contains(t, out, "Focus: Go, SQL")
}

func TestPrintView_Jobs(t *testing.T) {
	job := types.JobDescription{
		ID:          uuid.New(),
		Title:       "Backend Engineer",
		Company:     "Acme",
		Description: strings.Repeat("x", 200),
		CreatedAt:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintView(authenticatedView(workspace.TabJobs, job))

	out := buf.String()
	assert.Contains(t, out, "[Job Descriptions]")
	assert.Contains(t, out, "1 saved")
	assert.Contains(t, out, "Added 2024-06-02")
	assert.Contains(t, out, "...")
}

func TestPrintView_Settings(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintView(authenticatedView(workspace.TabSettings))

	out := buf.String()
	assert.Contains(t, out, "Email:        jo@example.com")
	assert.Contains(t, out, "Name:         N/A")
	assert.Contains(t, out, "Member since: 2024-05-01")
}

func TestPrintNotice(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintNotice("")
	assert.Empty(t, buf.String())

	p.PrintNotice("Logout failed. Please try again.")
	assert.Equal(t, "! Logout failed. Please try again.\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
