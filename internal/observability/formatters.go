// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/fixmytext/internal/pyramid"
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
//nolint:errcheck // writing to stdout; errors are not recoverable
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

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items with a "... and N more" tail.
func writeList(sb *strings.Builder, items []string, limit int, bullet string) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  %s %s\n", bullet, items[i])
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintProgress writes a one-line phase update.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintProgress(ev pyramid.ProgressEvent) {
	fmt.Fprintf(p.out, "[%-11s] %s\n", ev.Phase, ev.Message)
}

// PrintDetection outputs the detected type, language and format.
func (p *Printer) PrintDetection(result *pyramid.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Type:        %s\n", result.DocumentType)
	fmt.Fprintf(&sb, "Language:    %s\n", result.Language)
	fmt.Fprintf(&sb, "Confidence:  %.2f\n", result.DetectionConfidence)
	fmt.Fprintf(&sb, "Subject as:  %s\n", result.FormatElements.SubjectLabel)
	fmt.Fprintf(&sb, "Headings:    %s", result.FormatElements.HeadingStyle)
	if result.SourceApp != "" {
		fmt.Fprintf(&sb, "\nSource app:  %s", result.SourceApp)
	}

	p.printBox("DOCUMENT", sb.String())
}

// PrintStructure outputs the headline structure of the final document.
func (p *Printer) PrintStructure(result *pyramid.Result) {
	if result == nil || (result.Subject == "" && len(result.Structure) == 0) {
		return
	}

	var sb strings.Builder
	if result.Subject != "" {
		fmt.Fprintf(&sb, "%s: %s\n", result.FormatElements.SubjectLabel, result.Subject)
	}
	if len(result.Structure) > 0 {
		sb.WriteString("\n")
		titles := make([]string, 0, len(result.Structure))
		for _, h := range result.Structure {
			titles = append(titles, fmt.Sprintf("%s (%s)", h.Title, h.Priority))
		}
		writeList(&sb, titles, maxItemsToShow, "•")
	}

	p.printBox("STRUCTURE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintImprovements outputs the applied improvements and the quality score.
func (p *Printer) PrintImprovements(result *pyramid.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Quality score: %.2f\n", result.QualityScore)
	if len(result.AppliedImprovements) == 0 {
		sb.WriteString("No improvements applied; foundation kept as is")
	} else {
		fmt.Fprintf(&sb, "Applied %d improvements:\n", len(result.AppliedImprovements))
		writeList(&sb, result.AppliedImprovements, maxItemsToShow, "✓")
	}

	p.printBox("IMPROVEMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQualityCheck outputs the risks found while merging.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintQualityCheck(check pyramid.QualityCheck) {
	if check.Passed {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ QUALITY CHECK PASSED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk score: %.2f", check.RiskScore)
	if check.RiskPenaltyApplied {
		sb.WriteString(" (penalty applied)")
	}
	sb.WriteString("\n")

	if check.IntegrationFailed {
		sb.WriteString("⚠ integration failed, foundation kept\n")
	}
	if len(check.SpecialistFailures) > 0 {
		fmt.Fprintf(&sb, "⚠ specialists failed: %s\n", strings.Join(check.SpecialistFailures, ", "))
	}
	if len(check.MissingInfo) > 0 {
		sb.WriteString("Missing from result:\n")
		writeList(&sb, check.MissingInfo, 3, "-")
	}
	if len(check.StructureIssues) > 0 {
		sb.WriteString("Structure issues:\n")
		writeList(&sb, check.StructureIssues, 3, "-")
	}

	p.printBox("QUALITY CHECK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult prints every section for a finished run.
func (p *Printer) PrintResult(result *pyramid.Result) {
	if result == nil {
		return
	}
	p.PrintDetection(result)
	p.PrintStructure(result)
	p.PrintImprovements(result)
	p.PrintQualityCheck(result.QualityCheck)
}
