// Package clipboard defines the OS collaborators the actions depend on:
// the clipboard itself and keystroke/focus automation.
package clipboard

import "context"

// Clipboard reads and writes the shared system clipboard.
type Clipboard interface {
	// ReadText returns the plain text content; empty when nothing usable is present.
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	// WriteRich stores HTML with a plain text alternative for targets without HTML support.
	WriteRich(ctx context.Context, html, plainFallback string) error
}

// Automation drives the focused application.
type Automation interface {
	// Copy sends the platform copy shortcut to the focused application.
	Copy(ctx context.Context) error
	// Paste sends the paste shortcut. A non-empty targetHint asks the platform
	// to refocus that application first.
	Paste(ctx context.Context, targetHint string) error
	// FocusedApp returns an identifier of the focused application, empty when unknown.
	FocusedApp(ctx context.Context) (string, error)
}
