package pyramid

import (
	"fmt"
	"strings"
)

// Thresholds controls the Phase D merge rules.
type Thresholds struct {
	// SubjectConfidence must be exceeded to apply the improved subject
	SubjectConfidence float64 `yaml:"subject_confidence" json:"subject_confidence"`
	// HeaderConfidence must be exceeded to apply header changes, unless structure issues were flagged
	HeaderConfidence float64 `yaml:"header_confidence" json:"header_confidence"`
	// CompletenessRisk above which missing items are appended as a note
	CompletenessRisk float64 `yaml:"completeness_risk" json:"completeness_risk"`
	// PenaltyRisk above which the quality score is reduced
	PenaltyRisk float64 `yaml:"penalty_risk" json:"penalty_risk"`
	// StyleConfidence must be exceeded to record style findings
	StyleConfidence float64 `yaml:"style_confidence" json:"style_confidence"`

	ImprovementIncrement float64 `yaml:"improvement_increment" json:"improvement_increment"`
	RiskPenalty          float64 `yaml:"risk_penalty" json:"risk_penalty"`
}

// DefaultThresholds returns the standard merge thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SubjectConfidence:    0.7,
		HeaderConfidence:     0.7,
		CompletenessRisk:     0.3,
		PenaltyRisk:          0.5,
		StyleConfidence:      0.7,
		ImprovementIncrement: 0.05,
		RiskPenalty:          0.1,
	}
}

// completenessLabels heads the appended note, keyed by language.
var completenessLabels = map[string]string{
	"en": "Additional information from source",
	"de": "Zusätzliche Informationen aus dem Original",
}

func completenessLabel(language string) string {
	if l, ok := completenessLabels[language]; ok {
		return l
	}
	return completenessLabels["en"]
}

// Integrate merges specialist findings into the foundation (Phase D). It is
// deterministic and makes no model calls. Any failure yields the unmodified
// foundation with the failure as the only applied improvement.
func Integrate(oneshot OneshotResult, refinement SpecialistRefinement, t Thresholds) (result IntegrationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fallbackIntegration(oneshot, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := integrate(oneshot, refinement, t)
	if err != nil {
		return fallbackIntegration(oneshot, err)
	}
	return res
}

func integrate(oneshot OneshotResult, r SpecialistRefinement, t Thresholds) (IntegrationResult, error) {
	if strings.TrimSpace(oneshot.FullDocument) == "" {
		return IntegrationResult{}, &PipelineError{Phase: PhaseIntegration, Message: "foundation document is empty"}
	}

	res := IntegrationResult{
		FinalDocument:       oneshot.FullDocument,
		Subject:             oneshot.Subject,
		Headers:             append([]string(nil), oneshot.Headers...),
		AppliedImprovements: []string{},
	}

	// 1. Subject
	if r.Subject.Confidence > t.SubjectConfidence {
		improved := strings.TrimSpace(r.Subject.ImprovedSubject)
		if improved != "" && improved != res.Subject {
			res.Subject = improved
			res.AppliedImprovements = append(res.AppliedImprovements,
				fmt.Sprintf("Subject refined (confidence %.2f)", r.Subject.Confidence))
		}
	}

	// 2. Headers; flagged structure issues override low confidence
	issues := len(r.Headers.StructureIssues) > 0
	if r.Headers.Confidence > t.HeaderConfidence || issues {
		replaced := 0
		for _, change := range r.Headers.ImprovedHeaders {
			original := strings.TrimSpace(change.Original)
			improved := strings.TrimSpace(change.Improved)
			if original == "" || improved == "" || original == improved {
				continue
			}
			idx := indexOf(res.Headers, original)
			if idx < 0 {
				continue
			}
			doc, ok := replaceHeading(res.FinalDocument, original, improved)
			if !ok {
				continue
			}
			res.FinalDocument = doc
			res.Headers[idx] = improved
			replaced++
		}
		if replaced > 0 {
			entry := fmt.Sprintf("Headers restructured (%d replaced)", replaced)
			if issues && r.Headers.Confidence <= t.HeaderConfidence {
				entry += fmt.Sprintf("; applied for %d structure issues", len(r.Headers.StructureIssues))
			}
			res.AppliedImprovements = append(res.AppliedImprovements, entry)
		}
	}

	// 3. Completeness
	if r.Completeness.RiskScore > t.CompletenessRisk {
		missing := nonBlank(r.Completeness.MissingInfo)
		if len(missing) > 0 {
			res.FinalDocument = appendCompletenessNote(res.FinalDocument, oneshot.Language, missing)
			res.CompletenessNoteAdded = true
			res.AppliedImprovements = append(res.AppliedImprovements,
				fmt.Sprintf("Added %d missing items from source (risk %.2f)", len(missing), r.Completeness.RiskScore))
		}
	}

	// 4. Style is recorded, not rewritten
	if r.Style.Confidence > t.StyleConfidence && len(r.Style.Issues) > 0 {
		res.AppliedImprovements = append(res.AppliedImprovements,
			fmt.Sprintf("Style improvements considered (%d issues)", len(r.Style.Issues)))
	}

	// 5. Score
	score := oneshot.Confidence + t.ImprovementIncrement*float64(len(res.AppliedImprovements))
	score = clamp01(score)
	if r.Completeness.RiskScore > t.PenaltyRisk {
		score = clamp01(score - t.RiskPenalty)
		res.RiskPenaltyApplied = true
	}
	res.QualityScore = score

	return res, nil
}

func fallbackIntegration(oneshot OneshotResult, err error) IntegrationResult {
	return IntegrationResult{
		FinalDocument:       oneshot.FullDocument,
		Subject:             oneshot.Subject,
		Headers:             append([]string(nil), oneshot.Headers...),
		AppliedImprovements: []string{fmt.Sprintf("Integration failed, foundation kept: %v", err)},
		QualityScore:        clamp01(oneshot.Confidence),
		Failed:              true,
	}
}

// replaceHeading swaps the text of the first heading line whose text equals
// original. Lines that are not headings are never touched.
func replaceHeading(doc, original, improved string) (string, bool) {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		text, ok := headingText(line)
		if !ok || text != original {
			continue
		}
		lines[i] = strings.Replace(line, original, improved, 1)
		return strings.Join(lines, "\n"), true
	}
	return doc, false
}

func appendCompletenessNote(doc, language string, missing []string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(doc, "\n"))
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "**%s:**\n", completenessLabel(language))
	for _, item := range missing {
		fmt.Fprintf(&sb, "- %s\n", item)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// nonBlank drops empty items and keeps the rest verbatim.
func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
