package pyramid

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/prompts"
	"github.com/jonathan/fixmytext/internal/schemas"
)

var oneshotSchema = llm.OutputSchema{
	Name: "OneshotResult",
	Fields: []llm.SchemaField{
		{Name: "subject", Type: `"string"`, Description: "subject line or title", Required: true},
		{Name: "headers", Type: `["string"]`, Description: "headings in document order, without markup", Required: true},
		{Name: "full_document", Type: `"string"`, Description: "complete document in markdown", Required: true},
		{Name: "confidence", Type: "0.0-1.0", Required: true},
	},
}

// oneshotPrompt builds the type-specific system prompt for Phase B.
func oneshotPrompt(docType DocumentType, language, instructions string) (string, error) {
	steering := ""
	if s := strings.TrimSpace(instructions); s != "" {
		steering = "- Additional instructions from the author: " + s
	}
	body, err := prompts.Render(prompts.Pyramidal, "oneshot-"+string(docType), map[string]string{
		"Language":     language,
		"Instructions": steering,
	})
	if err != nil {
		return "", err
	}
	output, err := prompts.Get(prompts.Pyramidal, "oneshot-output")
	if err != nil {
		return "", err
	}
	return llm.WithOutputSchema(body+"\n\n"+output, oneshotSchema), nil
}

// oneshot generates the foundation document in a single call (Phase B).
func (p *Pipeline) oneshot(ctx context.Context, req Request, det Detection) (OneshotResult, error) {
	system, err := oneshotPrompt(det.DocumentType, det.Language, req.Instructions)
	if err != nil {
		return OneshotResult{}, &PipelineError{Phase: PhaseOneshot, Message: "load prompt", Cause: err}
	}

	raw, err := p.model.GenerateJSON(ctx, system, req.Text, llm.TierAdvanced)
	if err != nil {
		return OneshotResult{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return OneshotResult{}, &PipelineError{Phase: PhaseOneshot, Message: "model returned an empty document"}
	}

	var out OneshotResult
	if err := parseStructured(PhaseOneshot, schemas.Oneshot, raw, &out); err != nil {
		p.logParseFallback(err)
		if partial, ok := partialOneshot(raw, det); ok {
			return partial, nil
		}
		return fallbackOneshot(raw, det), nil
	}

	out.DocumentType = det.DocumentType
	out.Language = det.Language
	out.Confidence = clamp01(out.Confidence)
	out.Subject = strings.TrimSpace(out.Subject)
	out.Headers = cleanHeaders(out.Headers)
	if len(out.Headers) == 0 {
		out.Headers = recoverHeaders(out.FullDocument)
	}
	return out, nil
}

// partialOneshot salvages a JSON reply that failed the schema but still
// carries a document, e.g. with the headers key missing or a confidence given
// as a string. Confidence is zero and the raw reply is kept.
func partialOneshot(raw string, det Detection) (OneshotResult, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(raw)), &obj); err != nil {
		return OneshotResult{}, false
	}
	doc, _ := obj["full_document"].(string)
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return OneshotResult{}, false
	}

	subject, _ := obj["subject"].(string)
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = fallbackSubject(doc)
	}

	var headers []string
	if list, ok := obj["headers"].([]any); ok {
		for _, item := range list {
			if h, ok := item.(string); ok {
				headers = append(headers, h)
			}
		}
	}
	headers = cleanHeaders(headers)
	if len(headers) == 0 {
		headers = recoverHeaders(doc)
	}

	return OneshotResult{
		Subject:      subject,
		Headers:      headers,
		FullDocument: doc,
		DocumentType: det.DocumentType,
		Language:     det.Language,
		Confidence:   0,
		Raw:          raw,
	}, true
}

// fallbackOneshot treats the raw reply as the document when it is not the
// requested JSON. Confidence is zero so later phases cannot inflate it much.
func fallbackOneshot(raw string, det Detection) OneshotResult {
	doc := strings.TrimSpace(llm.CleanJSONBlock(raw))
	return OneshotResult{
		Subject:      fallbackSubject(doc),
		Headers:      recoverHeaders(doc),
		FullDocument: doc,
		DocumentType: det.DocumentType,
		Language:     det.Language,
		Confidence:   0,
		Raw:          raw,
	}
}

// fallbackSubject picks an explicit "Subject:" line, or the first non-heading line.
func fallbackSubject(doc string) string {
	lines := strings.Split(doc, "\n")
	for _, line := range lines {
		s := strings.TrimSpace(line)
		for _, prefix := range []string{"Subject:", "Betreff:", "**Subject:**", "**Betreff:**"} {
			if strings.HasPrefix(s, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(s, prefix))
			}
		}
	}
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if h, ok := headingText(s); ok {
			return h
		}
		return s
	}
	return ""
}

func cleanHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if t, ok := headingText(h); ok {
			h = t
		}
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
