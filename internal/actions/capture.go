package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/fixmytext/internal/richtext"
	"go.uber.org/zap"
)

// capture copies the current selection and reads it back.
// An empty Text with a nil error means nothing was selected.
func capture(ctx context.Context, deps Deps) (CapturedText, error) {
	app, err := deps.Automation.FocusedApp(ctx)
	if err != nil {
		deps.Logger.Warn("focused app unknown", zap.Error(err))
		app = ""
	}

	if err := deps.Automation.Copy(ctx); err != nil {
		return CapturedText{}, fmt.Errorf("copy selection: %w", err)
	}

	if deps.SettleDelay > 0 {
		select {
		case <-time.After(deps.SettleDelay):
		case <-ctx.Done():
			return CapturedText{}, ctx.Err()
		}
	}

	text, err := deps.Clipboard.ReadText(ctx)
	if err != nil {
		deps.Logger.Warn("clipboard read failed", zap.Error(err))
		text = ""
	}

	return CapturedText{
		ID:         uuid.New(),
		Text:       text,
		SourceApp:  app,
		CapturedAt: time.Now(),
	}, nil
}

// writeResult puts text on the clipboard, as HTML when the target accepts
// rich paste and conversion succeeds, as plain text otherwise.
func writeResult(ctx context.Context, deps Deps, targetApp, text string) error {
	isHTML := richtext.LooksLikeHTML(text)

	if deps.Matcher.Supports(targetApp) {
		html := text
		if !isHTML {
			var err error
			html, err = deps.Converter.MarkdownToHTML(text)
			if err != nil {
				deps.Logger.Warn("markdown conversion failed, writing plain text", zap.Error(err))
				return deps.Clipboard.WriteText(ctx, text)
			}
		}
		plain, err := richtext.PlainText(html)
		if err != nil || plain == "" {
			plain = text
		}
		return deps.Clipboard.WriteRich(ctx, html, plain)
	}

	if isHTML {
		if plain, err := richtext.PlainText(text); err == nil && plain != "" {
			text = plain
		}
	}
	return deps.Clipboard.WriteText(ctx, text)
}
