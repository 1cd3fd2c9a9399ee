package pyramid

import "fmt"

// PipelineError is an unrecoverable failure in one phase of a run.
type PipelineError struct {
	Phase   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline %s: %s: %v", e.Phase, e.Message, e.Cause)
	}
	return fmt.Sprintf("pipeline %s: %s", e.Phase, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ParseError reports structured model output that could not be used.
type ParseError struct {
	Stage string
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Stage, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
