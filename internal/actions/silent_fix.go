package actions

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/metrics"
	"github.com/jonathan/fixmytext/internal/prompts"
	"go.uber.org/zap"
)

// ErrEmptyCorrection is returned when the model reply has no text.
var ErrEmptyCorrection = errors.New("model returned an empty correction")

// SilentFix corrects the selection in place without showing any UI.
// It is fail-open: on any failure before the write the clipboard keeps the
// captured text, and nothing is pasted.
type SilentFix struct {
	deps   Deps
	model  llm.Client
	tier   llm.ModelTier
	logger *zap.Logger
}

// NewSilentFix creates the single-press action.
func NewSilentFix(deps Deps, model llm.Client) *SilentFix {
	deps = deps.withDefaults()
	return &SilentFix{
		deps:   deps,
		model:  model,
		tier:   llm.TierStandard,
		logger: deps.Logger.With(zap.String("component", "silent_fix")),
	}
}

// WithTier sets the model tier used for the correction. The zero value keeps
// the standard tier.
func (a *SilentFix) WithTier(tier llm.ModelTier) *SilentFix {
	if tier != "" {
		a.tier = tier
	}
	return a
}

// Execute runs capture, correction, write and paste.
func (a *SilentFix) Execute(ctx context.Context) Outcome {
	outcome := a.execute(ctx)
	metrics.RecordActionOutcome("silent_fix", string(outcome))
	return outcome
}

func (a *SilentFix) execute(ctx context.Context) Outcome {
	captured, err := capture(ctx, a.deps)
	if err != nil {
		a.logger.Warn("capture failed", zap.Error(err))
		return OutcomeFailed
	}
	if strings.TrimSpace(captured.Text) == "" {
		a.logger.Info("no text in clipboard")
		return OutcomeEmpty
	}

	log := a.logger.With(
		zap.String("capture_id", captured.ID.String()),
		zap.String("source_app", captured.SourceApp),
		zap.Int("text_len", len(captured.Text)),
	)

	rich := a.deps.Matcher.Supports(captured.SourceApp)
	fixed, err := Correct(ctx, a.model, a.tier, captured.Text, rich)
	if err != nil {
		log.Warn("correction failed, leaving clipboard untouched", zap.Error(err))
		return OutcomeFailed
	}

	if err := writeResult(ctx, a.deps, captured.SourceApp, fixed); err != nil {
		log.Warn("clipboard write failed, not pasting", zap.Error(err))
		return OutcomeFailed
	}

	if err := a.deps.Automation.Paste(ctx, ""); err != nil {
		// The corrected text is on the clipboard for a manual paste
		log.Warn("paste failed", zap.Error(err))
	}

	log.Info("text corrected", zap.Bool("rich", rich), zap.Int("result_len", len(fixed)))
	return OutcomeApplied
}

// Correct sends text through the correction prompt. The format tag tells the
// model whether markdown emphasis will be rendered by the target.
func Correct(ctx context.Context, model llm.Client, tier llm.ModelTier, text string, markdown bool) (string, error) {
	system, err := prompts.Get(prompts.SilentFix, "correct-text")
	if err != nil {
		return "", err
	}

	tagKey := "format-tag-plain"
	if markdown {
		tagKey = "format-tag-markdown"
	}
	tag := prompts.MustGet(prompts.SilentFix, tagKey)

	out, err := model.Generate(ctx, system, tag+"\n"+text, tier)
	if err != nil {
		return "", err
	}

	out = stripFormatTag(strings.TrimSpace(out))
	if out == "" {
		return "", ErrEmptyCorrection
	}
	return out, nil
}

// stripFormatTag removes a format tag the model echoed back.
func stripFormatTag(s string) string {
	for _, tag := range []string{"[MARKDOWN]", "[PLAIN]", "[HTML]"} {
		if strings.HasPrefix(s, tag) {
			return strings.TrimSpace(strings.TrimPrefix(s, tag))
		}
	}
	return s
}
