// Package observability provides the process logger and the terminal rendering of workspace
// snapshots used by the interactive CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/pallybot/internal/workspace"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer renders workspace snapshots as boxes on a terminal.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// PrintView renders the header and the active tab of a snapshot. An unauthenticated snapshot
// renders only the session phase.
func (p *Printer) PrintView(v workspace.View) {
	w := v.Workspace
	if w == nil {
		p.printBox("PALLYBOT", fmt.Sprintf("Session: %s\nSign in to open your workspace.", v.Session.Phase))
		return
	}

	p.printBox("PALLYBOT", p.header(v))

	switch w.ActiveTab {
	case workspace.TabInterview:
		p.PrintInterview(w)
	case workspace.TabJobs:
		p.PrintJobs(w)
	case workspace.TabSettings:
		p.PrintSettings(v)
	}
}

func (p *Printer) header(v workspace.View) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Signed in as %s\n\n", v.Session.User.Label()))

	tabs := make([]string, 0, len(workspace.AllTabs()))
	for _, tab := range workspace.AllTabs() {
		label := tab.Label()
		if tab == v.Workspace.ActiveTab {
			label = "[" + label + "]"
		}
		tabs = append(tabs, label)
	}
	sb.WriteString(strings.Join(tabs, "  "))
	if v.Workspace.SidebarOpen {
		sb.WriteString("\n(menu open)")
	}
	return sb.String()
}

// PrintInterview renders the interview tab: the job picker and the bound job.
func (p *Printer) PrintInterview(w *workspace.WorkspaceView) {
	var sb strings.Builder

	options := w.JobOptions()
	if len(options) == 0 {
		sb.WriteString("No job descriptions yet. Add one on the Job Descriptions tab\n")
		sb.WriteString("to tailor interview questions.")
	} else {
		sb.WriteString("Practice for:\n")
		for i, opt := range options {
			marker := " "
			if opt.Selected {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf(" %s %d. %s\n", marker, i, opt.Label))
		}
		if job, ok := w.Selected(); ok && len(job.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("\nFocus: %s", strings.Join(job.Keywords, ", ")))
		}
	}

	p.printBox(workspace.TabInterview.Label(), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobs renders the job description cards.
func (p *Printer) PrintJobs(w *workspace.WorkspaceView) {
	summaries := w.Summaries()
	if len(summaries) == 0 {
		p.printBox(workspace.TabJobs.Label(), "No job descriptions saved.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d saved:\n\n", len(summaries)))

	count := min(len(summaries), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := summaries[i]
		marker := " "
		if w.SelectedID != nil && *w.SelectedID == s.ID {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s at %s\n", marker, i+1, s.Title, s.Company))
		sb.WriteString(fmt.Sprintf("    %s\n", s.Preview))
		sb.WriteString(fmt.Sprintf("    Added %s · %d keywords · %s\n", s.AddedOn, s.KeywordCount, s.ID))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(summaries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(summaries)-maxItemsToShow))
	}

	p.printBox(workspace.TabJobs.Label(), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSettings renders the account details.
func (p *Printer) PrintSettings(v workspace.View) {
	user := v.Session.User
	email := "N/A"
	name := "N/A"
	if user != nil && user.Email != "" {
		email = user.Email
	}
	if user != nil && user.DisplayName != "" {
		name = user.DisplayName
	}

	content := fmt.Sprintf("Email:        %s\nName:         %s\nMember since: %s", email, name, user.MemberSince())
	p.printBox(workspace.TabSettings.Label(), content)
}

// PrintNotice prints a one-line notification.
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) PrintNotice(msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintf(p.out, "! %s\n", msg)
}
