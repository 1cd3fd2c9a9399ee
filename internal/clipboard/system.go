package clipboard

import (
	"context"

	"github.com/atotto/clipboard"
)

// System is the OS clipboard. It carries plain text only, so WriteRich
// stores the plain fallback.
type System struct{}

// NewSystem returns the OS clipboard, or an error when no clipboard utility is available.
func NewSystem() (*System, error) {
	if clipboard.Unsupported {
		return nil, &ClipboardError{Op: "init", Message: "no clipboard utility available (install xclip, xsel or wl-clipboard)"}
	}
	return &System{}, nil
}

func (s *System) ReadText(_ context.Context) (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", &ClipboardError{Op: "read", Message: "failed to read clipboard", Cause: err}
	}
	return text, nil
}

func (s *System) WriteText(_ context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return &ClipboardError{Op: "write", Message: "failed to write clipboard", Cause: err}
	}
	return nil
}

func (s *System) WriteRich(ctx context.Context, _, plainFallback string) error {
	return s.WriteText(ctx, plainFallback)
}
