// Package pyramid restructures raw text into a format-specific document using a
// fixed chain of model calls: detection, a oneshot foundation, four parallel
// specialist reviews, a deterministic merge and result assembly.
package pyramid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType is the target format of a pipeline run.
type DocumentType string

const (
	Email      DocumentType = "email"
	Wiki       DocumentType = "wiki"
	Memo       DocumentType = "memo"
	PowerPoint DocumentType = "powerpoint"
	// Auto asks the pipeline to classify the text first
	Auto DocumentType = "auto"
)

// ParseDocumentType accepts the canonical names plus a few common aliases.
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "email", "e-mail", "mail":
		return Email, nil
	case "wiki", "confluence":
		return Wiki, nil
	case "memo", "note":
		return Memo, nil
	case "powerpoint", "ppt", "slides", "deck":
		return PowerPoint, nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// Concrete reports whether d names an actual output format.
func (d DocumentType) Concrete() bool {
	switch d {
	case Email, Wiki, Memo, PowerPoint:
		return true
	}
	return false
}

// Request is the input of one pipeline run.
type Request struct {
	Text         string       `json:"text"`
	DocumentType DocumentType `json:"document_type"`
	SourceApp    string       `json:"source_app,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
}

// Detection is the outcome of Phase A.
type Detection struct {
	DocumentType DocumentType `json:"document_type"`
	Language     string       `json:"language"`
	Confidence   float64      `json:"confidence"`
	// Classified is false when the caller supplied the type
	Classified bool `json:"classified"`
}

// OneshotResult is the foundation document produced by Phase B.
type OneshotResult struct {
	Subject      string       `json:"subject"`
	Headers      []string     `json:"headers"`
	FullDocument string       `json:"full_document"`
	DocumentType DocumentType `json:"document_type"`
	Language     string       `json:"language"`
	Confidence   float64      `json:"confidence"`
	// Raw holds the unparsed model output when the structured reply could not be used
	Raw string `json:"raw,omitempty"`
}

// SpecialistName identifies one Phase C reviewer.
type SpecialistName string

const (
	SpecialistSubject      SpecialistName = "subject"
	SpecialistHeaders      SpecialistName = "headers"
	SpecialistCompleteness SpecialistName = "completeness"
	SpecialistStyle        SpecialistName = "style"
)

// Specialists lists the Phase C reviewers in a stable order.
var Specialists = []SpecialistName{
	SpecialistSubject,
	SpecialistHeaders,
	SpecialistCompleteness,
	SpecialistStyle,
}

type SubjectRefinement struct {
	ImprovedSubject string   `json:"improved_subject"`
	Changes         []string `json:"changes"`
	Confidence      float64  `json:"confidence"`
}

type HeaderChange struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
}

type HeaderRefinement struct {
	ImprovedHeaders []HeaderChange `json:"improved_headers"`
	StructureIssues []string       `json:"structure_issues"`
	ValidationNotes []string       `json:"validation_notes"`
	Confidence      float64        `json:"confidence"`
}

type CompletenessRefinement struct {
	MissingInfo        []string `json:"missing_info"`
	PreservationStatus string   `json:"preservation_status"`
	RiskScore          float64  `json:"risk_score"`
	Confidence         float64  `json:"confidence"`
}

type StyleRefinement struct {
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
}

// SpecialistRefinement joins the four Phase C reviews. A failed reviewer
// contributes a zero-confidence placeholder and an entry in Failures.
type SpecialistRefinement struct {
	Subject      SubjectRefinement         `json:"subject"`
	Headers      HeaderRefinement          `json:"headers"`
	Completeness CompletenessRefinement    `json:"completeness"`
	Style        StyleRefinement           `json:"style"`
	Failures     map[SpecialistName]string `json:"failures,omitempty"`
}

// Failed reports whether the named specialist fell back to a placeholder.
func (r SpecialistRefinement) Failed(name SpecialistName) bool {
	_, ok := r.Failures[name]
	return ok
}

// IntegrationResult is the outcome of Phase D.
type IntegrationResult struct {
	FinalDocument         string   `json:"final_document"`
	Subject               string   `json:"subject"`
	Headers               []string `json:"headers"`
	AppliedImprovements   []string `json:"applied_improvements"`
	QualityScore          float64  `json:"quality_score"`
	CompletenessNoteAdded bool     `json:"completeness_note_added"`
	RiskPenaltyApplied    bool     `json:"risk_penalty_applied"`
	Failed                bool     `json:"failed"`
}

// Priority values for structure headlines
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Headline is one entry of the structure view.
type Headline struct {
	Title    string   `json:"title"`
	Priority string   `json:"priority"`
	Details  []string `json:"details"`
}

// QualityCheck summarizes risks found while merging.
type QualityCheck struct {
	Passed                bool     `json:"passed"`
	RiskScore             float64  `json:"risk_score"`
	RiskPenaltyApplied    bool     `json:"risk_penalty_applied"`
	CompletenessNoteAdded bool     `json:"completeness_note_added"`
	MissingInfo           []string `json:"missing_info,omitempty"`
	StructureIssues       []string `json:"structure_issues,omitempty"`
	SpecialistFailures    []string `json:"specialist_failures,omitempty"`
	IntegrationFailed     bool     `json:"integration_failed"`
}

// FormatElements describes how the chosen document type presents itself.
type FormatElements struct {
	SubjectLabel     string `json:"subject_label"`
	HeadingStyle     string `json:"heading_style"`
	SubjectSeparator string `json:"subject_separator,omitempty"`
	MaxBullets       int    `json:"max_bullets,omitempty"`
}

// Result is the externally visible record of a pipeline run.
type Result struct {
	RunID               uuid.UUID            `json:"run_id"`
	DocumentType        DocumentType         `json:"document_type"`
	Language            string               `json:"language"`
	DetectionConfidence float64              `json:"detection_confidence"`
	FormatElements      FormatElements       `json:"format_elements"`
	FinalDocument       string               `json:"final_document"`
	Subject             string               `json:"subject"`
	AppliedImprovements []string             `json:"applied_improvements"`
	QualityScore        float64              `json:"quality_score"`
	Structure           []Headline           `json:"structure"`
	QualityCheck        QualityCheck         `json:"quality_check"`
	Oneshot             OneshotResult        `json:"oneshot"`
	Refinement          SpecialistRefinement `json:"refinement"`
	SourceApp           string               `json:"source_app,omitempty"`
	Duration            time.Duration        `json:"duration_ns"`
}
