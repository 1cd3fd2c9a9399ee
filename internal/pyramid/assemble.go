package pyramid

import (
	"github.com/google/uuid"
)

var formatProfiles = map[DocumentType]FormatElements{
	Email:      {SubjectLabel: "Subject", HeadingStyle: "bold", SubjectSeparator: " | "},
	Wiki:       {SubjectLabel: "Title", HeadingStyle: "markdown-h2"},
	Memo:       {SubjectLabel: "Subject", HeadingStyle: "bold"},
	PowerPoint: {SubjectLabel: "Deck title", HeadingStyle: "slide-title", MaxBullets: 5},
}

// FormatFor returns the presentation profile of a document type.
func FormatFor(d DocumentType) FormatElements {
	if f, ok := formatProfiles[d]; ok {
		return f
	}
	return formatProfiles[Memo]
}

// assemble builds the externally visible result (Phase E).
func assemble(
	runID uuid.UUID,
	req Request,
	det Detection,
	oneshot OneshotResult,
	refinement SpecialistRefinement,
	integration IntegrationResult,
	t Thresholds,
) *Result {
	structure := make([]Headline, 0, len(oneshot.Headers))
	for _, h := range oneshot.Headers {
		structure = append(structure, Headline{Title: h, Priority: PriorityMedium, Details: []string{}})
	}

	var failed []string
	for _, name := range Specialists {
		if refinement.Failed(name) {
			failed = append(failed, string(name))
		}
	}

	check := QualityCheck{
		RiskScore:             refinement.Completeness.RiskScore,
		RiskPenaltyApplied:    integration.RiskPenaltyApplied,
		CompletenessNoteAdded: integration.CompletenessNoteAdded,
		MissingInfo:           refinement.Completeness.MissingInfo,
		StructureIssues:       refinement.Headers.StructureIssues,
		SpecialistFailures:    failed,
		IntegrationFailed:     integration.Failed,
	}
	check.Passed = !check.IntegrationFailed &&
		len(check.SpecialistFailures) == 0 &&
		check.RiskScore <= t.PenaltyRisk

	return &Result{
		RunID:               runID,
		DocumentType:        det.DocumentType,
		Language:            det.Language,
		DetectionConfidence: det.Confidence,
		FormatElements:      FormatFor(det.DocumentType),
		FinalDocument:       integration.FinalDocument,
		Subject:             integration.Subject,
		AppliedImprovements: integration.AppliedImprovements,
		QualityScore:        integration.QualityScore,
		Structure:           structure,
		QualityCheck:        check,
		Oneshot:             oneshot,
		Refinement:          refinement,
		SourceApp:           req.SourceApp,
	}
}
