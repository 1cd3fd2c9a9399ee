package clipboard

import "fmt"

// ClipboardError represents a failed clipboard read or write
type ClipboardError struct {
	Op      string
	Message string
	Cause   error
}

func (e *ClipboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("clipboard %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("clipboard %s: %s", e.Op, e.Message)
}

func (e *ClipboardError) Unwrap() error {
	return e.Cause
}

// AutomationError represents a failed keystroke or focus operation
type AutomationError struct {
	Op      string
	Message string
	Cause   error
}

func (e *AutomationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("automation %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("automation %s: %s", e.Op, e.Message)
}

func (e *AutomationError) Unwrap() error {
	return e.Cause
}
