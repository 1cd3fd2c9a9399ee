package pyramid

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/metrics"
	"github.com/jonathan/fixmytext/internal/prompts"
	"github.com/jonathan/fixmytext/internal/schemas"
	"go.uber.org/zap"
)

var specialistSchemas = map[SpecialistName]llm.OutputSchema{
	SpecialistSubject: {
		Name: "SubjectRefinement",
		Fields: []llm.SchemaField{
			{Name: "improved_subject", Type: `"string"`, Required: true},
			{Name: "changes", Type: `["string"]`, Description: "what was changed and why"},
			{Name: "confidence", Type: "0.0-1.0", Required: true},
		},
	},
	SpecialistHeaders: {
		Name: "HeaderRefinement",
		Fields: []llm.SchemaField{
			{Name: "improved_headers", Type: `[{"original": "string", "improved": "string"}]`, Required: true},
			{Name: "structure_issues", Type: `["string"]`, Description: "MECE or structure violations"},
			{Name: "validation_notes", Type: `["string"]`},
			{Name: "confidence", Type: "0.0-1.0", Required: true},
		},
	},
	SpecialistCompleteness: {
		Name: "CompletenessRefinement",
		Fields: []llm.SchemaField{
			{Name: "missing_info", Type: `["string"]`, Description: "items from the original missing in the document", Required: true},
			{Name: "preservation_status", Type: `"string"`},
			{Name: "risk_score", Type: "0.0-1.0", Required: true},
			{Name: "confidence", Type: "0.0-1.0"},
		},
	},
	SpecialistStyle: {
		Name: "StyleRefinement",
		Fields: []llm.SchemaField{
			{Name: "issues", Type: `["string"]`, Required: true},
			{Name: "suggestions", Type: `["string"]`},
			{Name: "confidence", Type: "0.0-1.0", Required: true},
		},
	},
}

var specialistSchemaNames = map[SpecialistName]string{
	SpecialistSubject:      schemas.Subject,
	SpecialistHeaders:      schemas.Headers,
	SpecialistCompleteness: schemas.Completeness,
	SpecialistStyle:        schemas.Style,
}

// refine runs the four specialists concurrently (Phase C) and waits for all
// of them. A failing specialist never fails the run.
func (p *Pipeline) refine(ctx context.Context, original string, oneshot OneshotResult) SpecialistRefinement {
	var (
		refinement SpecialistRefinement
		mu         sync.Mutex
		failures   = make(map[SpecialistName]string)
	)

	fail := func(name SpecialistName, err error) {
		metrics.SpecialistFailureCount.WithLabelValues(string(name)).Inc()
		p.logger.Warn("specialist failed, using placeholder",
			zap.String("specialist", string(name)), zap.Error(err))
		mu.Lock()
		failures[name] = err.Error()
		mu.Unlock()
	}

	var g errgroup.Group
	for _, name := range Specialists {
		// Each goroutine gets its own copy of the foundation
		snapshot := copyOneshot(oneshot)
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					fail(name, fmt.Errorf("panic: %v", r))
				}
			}()

			switch name {
			case SpecialistSubject:
				var out SubjectRefinement
				if err := p.runSpecialist(ctx, name, subjectInput(snapshot), snapshot, &out); err != nil {
					fail(name, err)
					return nil
				}
				out.Confidence = clamp01(out.Confidence)
				refinement.Subject = out
			case SpecialistHeaders:
				var out HeaderRefinement
				if err := p.runSpecialist(ctx, name, headersInput(snapshot), snapshot, &out); err != nil {
					fail(name, err)
					return nil
				}
				out.Confidence = clamp01(out.Confidence)
				refinement.Headers = out
			case SpecialistCompleteness:
				var out CompletenessRefinement
				if err := p.runSpecialist(ctx, name, completenessInput(original, snapshot), snapshot, &out); err != nil {
					fail(name, err)
					return nil
				}
				out.RiskScore = clamp01(out.RiskScore)
				out.Confidence = clamp01(out.Confidence)
				refinement.Completeness = out
			case SpecialistStyle:
				var out StyleRefinement
				if err := p.runSpecialist(ctx, name, styleInput(snapshot), snapshot, &out); err != nil {
					fail(name, err)
					return nil
				}
				out.Confidence = clamp01(out.Confidence)
				refinement.Style = out
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	if len(failures) > 0 {
		refinement.Failures = failures
	}
	return refinement
}

// runSpecialist issues one specialist call and decodes its validated output.
func (p *Pipeline) runSpecialist(ctx context.Context, name SpecialistName, input string, oneshot OneshotResult, out any) error {
	system, err := prompts.Render(prompts.Pyramidal, "specialist-"+string(name), map[string]string{
		"DocumentType": string(oneshot.DocumentType),
		"Language":     oneshot.Language,
	})
	if err != nil {
		return err
	}

	raw, err := p.model.GenerateJSON(ctx, llm.WithOutputSchema(system, specialistSchemas[name]), input, llm.TierStandard)
	if err != nil {
		return err
	}
	return parseStructured(string(name), specialistSchemaNames[name], raw, out)
}

func copyOneshot(o OneshotResult) OneshotResult {
	o.Headers = append([]string(nil), o.Headers...)
	return o
}

func subjectInput(o OneshotResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SUBJECT:\n%s\n\n", o.Subject)
	writeHeaderList(&sb, o.Headers)
	fmt.Fprintf(&sb, "DOCUMENT:\n%s\n", o.FullDocument)
	return sb.String()
}

func headersInput(o OneshotResult) string {
	var sb strings.Builder
	writeHeaderList(&sb, o.Headers)
	fmt.Fprintf(&sb, "DOCUMENT:\n%s\n", o.FullDocument)
	return sb.String()
}

func completenessInput(original string, o OneshotResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ORIGINAL:\n%s\n\n", original)
	fmt.Fprintf(&sb, "GENERATED SUBJECT:\n%s\n\n", o.Subject)
	fmt.Fprintf(&sb, "GENERATED DOCUMENT:\n%s\n", o.FullDocument)
	return sb.String()
}

func styleInput(o OneshotResult) string {
	return fmt.Sprintf("SUBJECT:\n%s\n\nDOCUMENT:\n%s\n", o.Subject, o.FullDocument)
}

func writeHeaderList(sb *strings.Builder, headers []string) {
	sb.WriteString("HEADERS:\n")
	for _, h := range headers {
		fmt.Fprintf(sb, "- %s\n", h)
	}
	sb.WriteString("\n")
}
