package pyramid

import (
	"testing"

	"github.com/jonathan/fixmytext/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want DocumentType
	}{
		{"", Auto},
		{"AUTO", Auto},
		{"Email", Email},
		{"mail", Email},
		{"wiki", Wiki},
		{"memo", Memo},
		{"ppt", PowerPoint},
		{"slides", PowerPoint},
	}
	for _, tt := range tests {
		got, err := ParseDocumentType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDocumentType("letter")
	assert.Error(t, err)

	assert.True(t, Memo.Concrete())
	assert.False(t, Auto.Concrete())
}

func TestParseStructured(t *testing.T) {
	var out SubjectRefinement
	err := parseStructured("subject", schemas.Subject,
		"Here you go:\n```json\n{\"improved_subject\":\"A | B\",\"confidence\":0.8}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "A | B", out.ImprovedSubject)

	err = parseStructured("subject", schemas.Subject, `{"improved_subject": 3}`, &out)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "subject", pe.Stage)
	assert.Equal(t, `{"improved_subject": 3}`, pe.Raw)
}

func TestParseStructured_ClampsScores(t *testing.T) {
	var out CompletenessRefinement
	err := parseStructured("completeness", schemas.Completeness,
		`{"missing_info":["a"],"risk_score":1.4,"confidence":-0.2}`, &out)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.RiskScore, 1e-9)
	assert.Zero(t, out.Confidence)
}

func TestGuessLanguage(t *testing.T) {
	assert.Equal(t, "de", guessLanguage("Bitte schick mir die Zahlen bis Freitag"))
	assert.Equal(t, "de", guessLanguage("Grüße aus München"))
	assert.Equal(t, "en", guessLanguage("please send me the numbers by friday"))
	assert.Equal(t, "en", guessLanguage("12345"))
}

func TestRecoverHeaders(t *testing.T) {
	doc := "Hi,\n\n# Title\n**Budget approved**\nsome **bold** text\n**Owner:**\n## \n### Risks"
	assert.Equal(t, []string{"Title", "Budget approved", "Owner", "Risks"}, recoverHeaders(doc))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "de", normalizeLanguage(" de-DE "))
	assert.Equal(t, "en", normalizeLanguage("EN_us"))
	assert.Equal(t, "fr", normalizeLanguage("fr"))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, " | ", FormatFor(Email).SubjectSeparator)
	assert.Equal(t, 5, FormatFor(PowerPoint).MaxBullets)
	assert.Equal(t, FormatFor(Memo), FormatFor(Auto))
}
