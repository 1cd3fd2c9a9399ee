package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/fixmytext/internal/bus"
	"github.com/jonathan/fixmytext/internal/hotkey"
	"github.com/jonathan/fixmytext/internal/pyramid"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// HotkeyRequest is a raw hotkey notification forwarded by the UI shell.
type HotkeyRequest struct {
	HotkeyID   string    `json:"hotkey_id"`
	Transition string    `json:"transition" validate:"omitempty,oneof=pressed released press release"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProcessRequest is the body of /process and /process/stream.
type ProcessRequest struct {
	Text         string `json:"text" validate:"required"`
	DocumentType string `json:"document_type"`
	SourceApp    string `json:"source_app"`
	Instructions string `json:"instructions" validate:"max=4000"`
}

// PasteBackRequest carries the approved text.
type PasteBackRequest struct {
	Text string `json:"text" validate:"required"`
}

// decodeRequest reads a size-limited JSON body into dst and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ErrValidation{Field: verrs[0].Field(), Message: "failed " + verrs[0].Tag() + " check"}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

func (req ProcessRequest) toPipeline() (pyramid.Request, error) {
	out := pyramid.Request{
		Text:         req.Text,
		SourceApp:    req.SourceApp,
		Instructions: req.Instructions,
	}
	if strings.TrimSpace(req.Text) == "" {
		return out, &ErrValidation{Field: "text", Message: "must not be blank"}
	}
	if req.DocumentType != "" {
		dt, err := pyramid.ParseDocumentType(req.DocumentType)
		if err != nil {
			return out, &ErrValidation{Field: "document_type", Message: err.Error()}
		}
		out.DocumentType = dt
	}
	return out, nil
}

func (s *Server) handleHotkey(w http.ResponseWriter, r *http.Request) {
	var req HotkeyRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	transition, err := hotkey.ParseTransition(req.Transition)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.core.HandleHotkey(hotkey.Event{
		HotkeyID:   req.HotkeyID,
		Transition: transition,
		Timestamp:  req.Timestamp,
	})
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readProcessRequest(w, r)
	if !ok {
		return
	}

	result, err := s.core.ProcessDocumentWithProgress(r.Context(), req, nil)
	if err != nil {
		s.logger.Warn("process failed", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleProcessStream runs the pipeline and streams one "progress" event per
// phase, then "result" and "complete", or a single "error".
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readProcessRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	onProgress := func(ev pyramid.ProgressEvent) {
		if err := sse.WriteEvent("progress", ev); err != nil {
			s.logger.Debug("progress write failed", zap.Error(err))
		}
	}

	result, err := s.core.ProcessDocumentWithProgress(r.Context(), req, onProgress)
	if err != nil {
		s.logger.Warn("process failed", zap.Error(err))
		sse.WriteError(HTTPStatus(err), err.Error())
		return
	}

	if err := sse.WriteEvent("result", result); err != nil {
		s.logger.Debug("result write failed", zap.Error(err))
		return
	}
	sse.WriteComplete(result.RunID.String(), "completed")
}

func (s *Server) readProcessRequest(w http.ResponseWriter, r *http.Request) (pyramid.Request, bool) {
	var body ProcessRequest
	if err := decodeRequest(w, r, &body); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return pyramid.Request{}, false
	}
	req, err := body.toPipeline()
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return pyramid.Request{}, false
	}
	return req, true
}

func (s *Server) handlePasteBack(w http.ResponseWriter, r *http.Request) {
	var req PasteBackRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.core.PasteBackToSourceApp(r.Context(), req.Text); err != nil {
		s.logger.Warn("paste-back failed", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "pasted"})
}

// handleEvents streams bus notifications. Each SSE event is named after its
// topic; ?topic= may be repeated to narrow the stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	for _, topic := range topics {
		if !slices.Contains(bus.Topics, topic) {
			s.errorResponse(w, http.StatusBadRequest, "unknown topic: "+topic)
			return
		}
	}

	ctx := r.Context()
	notifications, err := s.core.Subscribe(ctx, topics...)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if err := sse.WriteEventWithID(n.ID, n.Topic, n.Payload); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keepalive"); err != nil {
				return
			}
		}
	}
}
