// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// transcriptPreviewLines caps the transcript box
	transcriptPreviewLines = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to width runes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// writeList appends a bulleted section, or "None." when items is empty.
func writeList(sb *strings.Builder, heading string, items []string) {
	sb.WriteString(heading + ":\n")
	if len(items) == 0 {
		sb.WriteString("  None.\n\n")
		return
	}
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
	sb.WriteString("\n")
}

// PrintNotes outputs the extracted meeting notes section by section.
func (p *Printer) PrintNotes(notes types.Notes) {
	if notes == nil {
		return
	}

	var sb strings.Builder
	title := notes.Title()
	if title == "" {
		title = "(untitled)"
	}
	sb.WriteString(fmt.Sprintf("Title: %s\n\n", title))

	writeList(&sb, "Topics Discussed", notes.List(types.NotesKeyTopicsDiscussed))
	writeList(&sb, "Decisions Made", notes.List(types.NotesKeyDecisionsMade))
	writeList(&sb, "Action Items", notes.List(types.NotesKeyActionItems))
	if notes.Has(types.NotesKeyKeyPoints) {
		writeList(&sb, "Key Points", notes.List(types.NotesKeyKeyPoints))
	}

	p.printBox("MEETING NOTES", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintTranscript outputs the first lines of a transcript.
func (p *Printer) PrintTranscript(transcript string) {
	if strings.TrimSpace(transcript) == "" {
		return
	}

	lines := strings.Split(strings.TrimSpace(transcript), "\n")
	shown := lines[:min(len(lines), transcriptPreviewLines)]
	content := strings.Join(shown, "\n")
	if len(lines) > transcriptPreviewLines {
		content += fmt.Sprintf("\n... and %d more lines", len(lines)-transcriptPreviewLines)
	}

	p.printBox(fmt.Sprintf("TRANSCRIPT (%d lines)", len(lines)), content)
}

// PrintProgress outputs one pipeline progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	marker := "✓"
	if event.Status == types.JobStatusFailed {
		marker = "✗"
	}
	stage := event.Stage
	if stage == "" {
		stage = "pipeline"
	}
	fmt.Fprintf(p.out, "%s [%s] %s (%s)\n", marker, stage, event.Message, event.Status)
}

// PrintJobSummary outputs the final state of a job.
func (p *Printer) PrintJobSummary(job *types.Job, reportPath string) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:     %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", job.Status))
	if job.Audio != nil {
		sb.WriteString(fmt.Sprintf("Audio:   %s\n", job.Audio.Filename))
	}
	switch {
	case job.Status == types.JobStatusSummarized:
		sb.WriteString(fmt.Sprintf("Report:  %s", reportPath))
	case job.ErrorMessage != nil:
		sb.WriteString(fmt.Sprintf("Error:   %s", *job.ErrorMessage))
	}

	title := "✅ REPORT READY"
	if job.Status == types.JobStatusFailed {
		title = "❌ REPORT FAILED"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}
