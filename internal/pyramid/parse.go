package pyramid

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/schemas"
)

// scoreFields are clamped into [0,1] before validation; models overshoot them.
var scoreFields = []string{"confidence", "risk_score"}

// fieldFix rewrites a decoded object in place before validation.
type fieldFix func(obj map[string]any)

// parseStructured validates raw model output against the named schema and
// decodes it into out. Score fields are clamped and fixes applied first.
func parseStructured(stage, schema, raw string, out any, fixes ...fieldFix) error {
	body := normalizeObject(llm.ExtractJSONObject(raw), fixes...)
	if err := schemas.Validate(schema, []byte(body)); err != nil {
		return &ParseError{Stage: stage, Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ParseError{Stage: stage, Raw: raw, Cause: err}
	}
	return nil
}

// normalizeObject returns body with score fields clamped and fixes applied.
// Anything that is not a JSON object is returned unchanged.
func normalizeObject(body string, fixes ...fieldFix) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil || obj == nil {
		return body
	}
	for _, key := range scoreFields {
		if v, ok := obj[key].(float64); ok {
			obj[key] = clamp01(v)
		}
	}
	for _, fix := range fixes {
		fix(obj)
	}
	normalized, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return string(normalized)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var (
	germanMarkers = []string{
		"der", "die", "das", "und", "ist", "nicht", "ich", "wir", "bitte",
		"mit", "für", "auf", "ein", "eine", "zu", "bis", "von", "sie", "danke",
	}
	englishMarkers = []string{
		"the", "and", "is", "not", "i", "we", "please", "with", "for", "on",
		"a", "an", "to", "by", "of", "you", "thanks", "send", "me",
	}
)

// guessLanguage is the best-effort fallback when detection output is unusable.
// It only distinguishes German from English.
func guessLanguage(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	count := func(markers []string) int {
		n := 0
		for _, w := range words {
			for _, m := range markers {
				if w == m {
					n++
					break
				}
			}
		}
		return n
	}

	de := count(germanMarkers)
	if strings.ContainsAny(text, "äöüÄÖÜß") {
		de += 2
	}
	if de > count(englishMarkers) {
		return "de"
	}
	return "en"
}

// recoverHeaders collects heading lines from a markdown document: ATX
// headings and lines that are entirely bold.
func recoverHeaders(doc string) []string {
	var headers []string
	for _, line := range strings.Split(doc, "\n") {
		if h, ok := headingText(line); ok {
			headers = append(headers, h)
		}
	}
	return headers
}

// headingText returns the text of a heading line without its markup.
func headingText(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if strings.HasPrefix(s, "#") {
		s = strings.TrimSpace(strings.TrimLeft(s, "#"))
		return s, s != ""
	}
	if len(s) > 4 && strings.HasPrefix(s, "**") && strings.HasSuffix(s, "**") {
		inner := strings.TrimSpace(s[2 : len(s)-2])
		inner = strings.TrimSuffix(inner, ":")
		if inner != "" && !strings.Contains(inner, "**") {
			return inner, true
		}
	}
	return "", false
}
