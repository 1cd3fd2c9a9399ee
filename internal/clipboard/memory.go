package clipboard

import (
	"context"
	"sync"
)

// Memory is an in-process clipboard. The local bridge uses it when the UI
// shell owns the real clipboard, and tests use it to observe writes.
type Memory struct {
	mu     sync.Mutex
	text   string
	html   string
	writes int

	// ReadErr and WriteErr, when set, are returned by the matching operations.
	ReadErr  error
	WriteErr error
}

// NewMemory returns a clipboard holding text.
func NewMemory(text string) *Memory {
	return &Memory{text: text}
}

func (m *Memory) ReadText(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", &ClipboardError{Op: "read", Message: "read failed", Cause: m.ReadErr}
	}
	return m.text, nil
}

func (m *Memory) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return &ClipboardError{Op: "write", Message: "write failed", Cause: m.WriteErr}
	}
	m.text = text
	m.html = ""
	m.writes++
	return nil
}

func (m *Memory) WriteRich(_ context.Context, html, plainFallback string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return &ClipboardError{Op: "write", Message: "write failed", Cause: m.WriteErr}
	}
	m.text = plainFallback
	m.html = html
	m.writes++
	return nil
}

// Set replaces the content without counting a write, as a user copy would.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.html = ""
}

// Snapshot returns the current text, HTML and write count.
func (m *Memory) Snapshot() (text, html string, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.html, m.writes
}
