package pyramid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/metrics"
	"go.uber.org/zap"
)

// Phase names used in progress events and metrics
const (
	PhaseInput       = "input"
	PhaseDetection   = "detection"
	PhaseOneshot     = "oneshot"
	PhaseSpecialists = "specialists"
	PhaseIntegration = "integration"
	PhaseAssembly    = "assembly"
	PhaseComplete    = "complete"
)

// ProgressEvent represents a progress update during a pipeline run
type ProgressEvent struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Pipeline runs the five phases against one chat model client.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	model      llm.Client
	thresholds Thresholds
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThresholds overrides the integration thresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline backed by model.
func New(model llm.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:      model,
		thresholds: DefaultThresholds(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "pyramid"))
	return p
}

// Thresholds returns the integration thresholds in use.
func (p *Pipeline) Thresholds() Thresholds {
	return p.thresholds
}

// Process runs the pipeline. Provider failures in detection or the oneshot
// call are returned as is; specialist and integration failures degrade.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	return p.ProcessWithProgress(ctx, req, nil)
}

// ProcessWithProgress is Process with a callback invoked after each phase.
func (p *Pipeline) ProcessWithProgress(ctx context.Context, req Request, onProgress ProgressCallback) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &PipelineError{Phase: PhaseInput, Message: "text is empty"}
	}
	if req.DocumentType == "" {
		req.DocumentType = Auto
	}
	if req.DocumentType != Auto && !req.DocumentType.Concrete() {
		return nil, &PipelineError{Phase: PhaseInput, Message: fmt.Sprintf("unsupported document type %q", req.DocumentType)}
	}

	runID := uuid.New()
	started := time.Now()
	log := p.logger.With(zap.String("run_id", runID.String()))
	emit := func(phase, message string, content any) {
		if onProgress != nil {
			onProgress(ProgressEvent{Phase: phase, Message: message, RunID: runID.String(), Content: content})
		}
	}

	// Phase A
	phaseStart := time.Now()
	det, err := p.detect(ctx, req)
	metrics.RecordPhase(PhaseDetection, time.Since(phaseStart))
	if err != nil {
		return nil, err
	}
	log.Info("document detected",
		zap.String("type", string(det.DocumentType)),
		zap.String("language", det.Language),
		zap.Float64("confidence", det.Confidence),
		zap.Bool("classified", det.Classified))
	emit(PhaseDetection, fmt.Sprintf("Detected %s document in %s", det.DocumentType, det.Language), det)

	// Phase B
	phaseStart = time.Now()
	oneshot, err := p.oneshot(ctx, req, det)
	metrics.RecordPhase(PhaseOneshot, time.Since(phaseStart))
	if err != nil {
		return nil, err
	}
	log.Info("foundation generated",
		zap.Int("headers", len(oneshot.Headers)),
		zap.Float64("confidence", oneshot.Confidence),
		zap.Bool("fallback", oneshot.Raw != ""))
	emit(PhaseOneshot, fmt.Sprintf("Generated foundation with %d headings", len(oneshot.Headers)), oneshot)

	// Phase C
	phaseStart = time.Now()
	refinement := p.refine(ctx, req.Text, oneshot)
	metrics.RecordPhase(PhaseSpecialists, time.Since(phaseStart))
	emit(PhaseSpecialists, fmt.Sprintf("Specialists finished (%d failed)", len(refinement.Failures)), refinement)

	// Phase D
	phaseStart = time.Now()
	integration := Integrate(oneshot, refinement, p.thresholds)
	metrics.RecordPhase(PhaseIntegration, time.Since(phaseStart))
	if integration.Failed {
		log.Warn("integration failed, using foundation", zap.Strings("improvements", integration.AppliedImprovements))
	}
	emit(PhaseIntegration, fmt.Sprintf("Applied %d improvements", len(integration.AppliedImprovements)), integration)

	// Phase E
	phaseStart = time.Now()
	result := assemble(runID, req, det, oneshot, refinement, integration, p.thresholds)
	result.Duration = time.Since(started)
	metrics.RecordPhase(PhaseAssembly, time.Since(phaseStart))
	metrics.QualityScore.Observe(result.QualityScore)

	log.Info("pipeline complete",
		zap.Float64("quality_score", result.QualityScore),
		zap.Bool("quality_passed", result.QualityCheck.Passed),
		zap.Duration("duration", result.Duration))
	emit(PhaseComplete, "Pipeline complete", result)

	return result, nil
}
