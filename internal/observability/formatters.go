// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/candidate-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
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

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// writeList appends up to limit items under a heading
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, item := range items[:min(len(items), limit)] {
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintParsedResume outputs a human-readable summary of a structured résumé.
func (p *Printer) PrintParsedResume(resume *types.ParsedResume) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", resume.Name))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", resume.Email))
	if resume.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone:    %s\n", resume.Phone))
	}
	if resume.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", resume.Location))
	}
	sb.WriteString("\n")

	if len(resume.Experience) > 0 {
		sb.WriteString(fmt.Sprintf("Experience (%d):\n", len(resume.Experience)))
		for _, exp := range resume.Experience[:min(len(resume.Experience), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("  • %s at %s", exp.Role, exp.Company))
			if exp.Type == types.EmploymentInternship {
				sb.WriteString(" (internship)")
			}
			sb.WriteString("\n")
		}
		if len(resume.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(resume.Experience)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	writeList(&sb, "URLs", resume.URLs, 3)
	writeList(&sb, "Certifications", resume.Certifications, 3)

	p.printBox("PARSED RÉSUMÉ", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobs outputs the candidate's work queue entries and their status.
func (p *Printer) PrintJobs(jobs []types.WorkflowJob) {
	if len(jobs) == 0 {
		return
	}

	var sb strings.Builder
	for _, job := range jobs {
		sb.WriteString(fmt.Sprintf("%-20s %s\n", job.JobType, job.Status))
		if job.Error != "" {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", job.Error))
		}
	}

	p.printBox("WORKFLOW JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEmbeddingResults outputs recent embedding attempts, newest first.
func (p *Printer) PrintEmbeddingResults(results []types.EmbeddingResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results[:min(len(results), maxItemsToShow)] {
		sb.WriteString(fmt.Sprintf("%s  %-7s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status))
		if r.Status == types.EmbeddingStatusSuccess {
			sb.WriteString(fmt.Sprintf(" %d dims", r.Dimensions))
		}
		sb.WriteString("\n")
		if r.ErrorMessage != "" {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", r.ErrorMessage))
		}
	}

	p.printBox("EMBEDDING ATTEMPTS", strings.TrimSuffix(sb.String(), "\n"))
}
