package pyramid

import (
	"context"
	"errors"
	"strings"

	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/prompts"
	"github.com/jonathan/fixmytext/internal/schemas"
	"go.uber.org/zap"
)

var detectionSchema = llm.OutputSchema{
	Name: "Detection",
	Fields: []llm.SchemaField{
		{Name: "type", Type: `"email" | "wiki" | "memo" | "powerpoint"`, Required: true},
		{Name: "language", Type: `"string"`, Description: "ISO 639-1 tag", Required: true},
		{Name: "confidence", Type: "0.0-1.0", Required: true},
	},
}

var languageSchema = llm.OutputSchema{
	Name: "LanguageDetection",
	Fields: []llm.SchemaField{
		{Name: "language", Type: `"string"`, Description: "ISO 639-1 tag", Required: true},
		{Name: "confidence", Type: "0.0-1.0"},
	},
}

// detect resolves the document type and language (Phase A). Provider errors
// are returned; unusable output falls back to Memo and a guessed language.
func (p *Pipeline) detect(ctx context.Context, req Request) (Detection, error) {
	if req.DocumentType.Concrete() {
		return p.detectLanguage(ctx, req)
	}

	system, err := prompts.Get(prompts.Pyramidal, "detect-type-language")
	if err != nil {
		return Detection{}, &PipelineError{Phase: PhaseDetection, Message: "load prompt", Cause: err}
	}

	raw, err := p.model.GenerateJSON(ctx, llm.WithOutputSchema(system, detectionSchema), req.Text, llm.TierLite)
	if err != nil {
		return Detection{}, err
	}

	var out struct {
		Type       DocumentType `json:"type"`
		Language   string       `json:"language"`
		Confidence float64      `json:"confidence"`
	}
	if err := parseStructured(PhaseDetection, schemas.Detection, raw, &out, canonicalType); err != nil {
		p.logParseFallback(err)
		return Detection{
			DocumentType: Memo,
			Language:     guessLanguage(req.Text),
			Confidence:   0,
			Classified:   true,
		}, nil
	}

	return Detection{
		DocumentType: out.Type,
		Language:     normalizeLanguage(out.Language),
		Confidence:   clamp01(out.Confidence),
		Classified:   true,
	}, nil
}

func (p *Pipeline) detectLanguage(ctx context.Context, req Request) (Detection, error) {
	det := Detection{DocumentType: req.DocumentType, Confidence: 1}

	system, err := prompts.Get(prompts.Pyramidal, "detect-language")
	if err != nil {
		return Detection{}, &PipelineError{Phase: PhaseDetection, Message: "load prompt", Cause: err}
	}

	raw, err := p.model.GenerateJSON(ctx, llm.WithOutputSchema(system, languageSchema), req.Text, llm.TierLite)
	if err != nil {
		return Detection{}, err
	}

	var out struct {
		Language string `json:"language"`
	}
	if err := parseStructured(PhaseDetection, schemas.Language, raw, &out); err != nil {
		p.logParseFallback(err)
		det.Language = guessLanguage(req.Text)
		det.Confidence = 0
		return det, nil
	}
	det.Language = normalizeLanguage(out.Language)
	return det, nil
}

// canonicalType maps type spellings like "Email" or "slides" to the
// canonical names. Unknown values are left for the schema to reject.
func canonicalType(obj map[string]any) {
	s, ok := obj["type"].(string)
	if !ok {
		return
	}
	if dt, err := ParseDocumentType(s); err == nil && dt.Concrete() {
		obj["type"] = string(dt)
	}
}

func (p *Pipeline) logParseFallback(err error) {
	var pe *ParseError
	if errors.As(err, &pe) {
		p.logger.Warn("unusable structured output, using fallback",
			zap.String("stage", pe.Stage),
			zap.Int("raw_len", len(pe.Raw)),
			zap.Error(pe.Cause))
		return
	}
	p.logger.Warn("unusable structured output, using fallback", zap.Error(err))
}

// normalizeLanguage reduces tags like "de-DE" or "EN" to a lower-case primary subtag.
func normalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
