package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/fixmytext/internal/metrics"
	"go.uber.org/zap"
)

// ErrNothingToPaste is returned by PasteBackToSourceApp for empty text.
var ErrNothingToPaste = errors.New("nothing to paste")

// UIAssisted captures the selection for the assistant UI and later pastes the
// approved result back into the application it came from.
type UIAssisted struct {
	deps      Deps
	publisher Publisher
	logger    *zap.Logger

	mu   sync.Mutex
	last *CapturedText
}

// NewUIAssisted creates the double-press action.
func NewUIAssisted(deps Deps, publisher Publisher) *UIAssisted {
	deps = deps.withDefaults()
	return &UIAssisted{
		deps:      deps,
		publisher: publisher,
		logger:    deps.Logger.With(zap.String("component", "ui_assisted")),
	}
}

// Execute captures text and source app and publishes TextReady.
func (a *UIAssisted) Execute(ctx context.Context) Outcome {
	outcome := a.execute(ctx)
	metrics.RecordActionOutcome("ui_assisted", string(outcome))
	return outcome
}

func (a *UIAssisted) execute(ctx context.Context) Outcome {
	captured, err := capture(ctx, a.deps)
	if err != nil {
		a.logger.Warn("capture failed", zap.Error(err))
		return OutcomeFailed
	}
	if strings.TrimSpace(captured.Text) == "" {
		a.logger.Info("no text in clipboard")
		return OutcomeEmpty
	}

	a.mu.Lock()
	a.last = &captured
	a.mu.Unlock()

	ev := TextReady{
		CaptureID: captured.ID,
		Text:      captured.Text,
		SourceApp: captured.SourceApp,
	}
	if err := a.publisher.PublishTextReady(ctx, ev); err != nil {
		a.logger.Warn("failed to publish text-ready", zap.Error(err))
		return OutcomeFailed
	}

	a.logger.Info("text captured for assistant",
		zap.String("capture_id", captured.ID.String()),
		zap.String("source_app", captured.SourceApp),
		zap.Int("text_len", len(captured.Text)))
	return OutcomeCaptured
}

// Captured returns the most recent capture.
func (a *UIAssisted) Captured() (CapturedText, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return CapturedText{}, false
	}
	return *a.last, true
}

// PasteBackToSourceApp writes text using the rich/plain rule for the captured
// source app and pastes it there. There is no deadline between capture and paste-back.
func (a *UIAssisted) PasteBackToSourceApp(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToPaste
	}

	captured, _ := a.Captured()
	target := captured.SourceApp

	if err := writeResult(ctx, a.deps, target, text); err != nil {
		metrics.RecordActionOutcome("paste_back", string(OutcomeFailed))
		return fmt.Errorf("write result: %w", err)
	}
	if err := a.deps.Automation.Paste(ctx, target); err != nil {
		metrics.RecordActionOutcome("paste_back", string(OutcomeFailed))
		return fmt.Errorf("paste into %q: %w", target, err)
	}

	metrics.RecordActionOutcome("paste_back", string(OutcomeApplied))
	a.logger.Info("result pasted back", zap.String("source_app", target), zap.Int("text_len", len(text)))
	return nil
}
