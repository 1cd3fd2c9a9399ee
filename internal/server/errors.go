package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/fixmytext/internal/actions"
	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/pyramid"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		provider   *llm.ProviderError
		pipeline   *pyramid.PipelineError
		automation *clipboard.AutomationError
		clip       *clipboard.ClipboardError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, actions.ErrNothingToPaste):
		return http.StatusBadRequest
	case errors.As(err, &provider):
		if provider.Kind == llm.KindRateLimit {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case errors.As(err, &pipeline):
		if pipeline.Phase == pyramid.PhaseInput {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &automation), errors.As(err, &clip):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
