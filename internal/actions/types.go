// Package actions implements the two hotkey flows: silent fix (capture,
// correct, paste) and UI-assisted (capture, hand to the UI, paste back later).
package actions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/richtext"
	"go.uber.org/zap"
)

// CapturedText is the selection taken from the focused application.
type CapturedText struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	SourceApp  string    `json:"source_app"`
	CapturedAt time.Time `json:"captured_at"`
}

// TextReady is published when UI-assisted capture has text for the UI.
type TextReady struct {
	CaptureID uuid.UUID `json:"capture_id"`
	Text      string    `json:"text"`
	SourceApp string    `json:"source_app"`
}

// Publisher delivers TextReady notifications to the UI layer.
type Publisher interface {
	PublishTextReady(ctx context.Context, ev TextReady) error
}

// Outcome summarizes one action run.
type Outcome string

const (
	// OutcomeApplied means a result was written and paste was requested
	OutcomeApplied Outcome = "applied"
	// OutcomeCaptured means text was captured and handed to the UI
	OutcomeCaptured Outcome = "captured"
	// OutcomeEmpty means nothing was selected; nothing was written
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means the run aborted; the clipboard still holds the captured text
	OutcomeFailed Outcome = "failed"
)

// DefaultSettleDelay is the wait between the copy keystroke and reading the clipboard.
const DefaultSettleDelay = 100 * time.Millisecond

// Deps are the collaborators shared by both actions.
type Deps struct {
	Clipboard  clipboard.Clipboard
	Automation clipboard.Automation
	Matcher    *richtext.Matcher
	Converter  *richtext.Converter
	Logger     *zap.Logger
	// SettleDelay overrides DefaultSettleDelay; negative disables the wait.
	SettleDelay time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Matcher == nil {
		d.Matcher = richtext.NewMatcher(richtext.MatcherConfig{})
	}
	if d.Converter == nil {
		d.Converter = richtext.NewConverter()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.SettleDelay == 0 {
		d.SettleDelay = DefaultSettleDelay
	}
	return d
}
