package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllSchemasCompile(t *testing.T) {
	for _, name := range []string{Detection, Language, Oneshot, Subject, Headers, Completeness, Style} {
		t.Run(name, func(t *testing.T) {
			_, err := load(name)
			require.NoError(t, err)
		})
	}
}

func TestValidate_ValidDetection(t *testing.T) {
	err := Validate(Detection, []byte(`{"type":"email","language":"en","confidence":0.9}`))
	assert.NoError(t, err)
}

func TestValidate_UnknownDocumentType(t *testing.T) {
	err := Validate(Detection, []byte(`{"type":"letter","language":"en","confidence":0.9}`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, Detection, validationErr.Schema)
	assert.Equal(t, "type", validationErr.Errors[0].Field)
}

func TestValidate_MissingField(t *testing.T) {
	err := Validate(Oneshot, []byte(`{"subject":"x","headers":[],"confidence":0.5}`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.NotEmpty(t, validationErr.Errors)
	assert.Contains(t, err.Error(), "full_document")
}

func TestValidate_ConfidenceOutOfRange(t *testing.T) {
	err := Validate(Subject, []byte(`{"improved_subject":"x","confidence":1.5}`))
	assert.Error(t, err)
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(Style, []byte(`{"issues": [`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nonexistent", []byte(`{}`))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "schema not found")
}

func TestValidate_HeaderChanges(t *testing.T) {
	valid := `{"improved_headers":[{"original":"Next steps","improved":"Budget approval due Friday"}],"structure_issues":["process label"],"confidence":0.2}`
	assert.NoError(t, Validate(Headers, []byte(valid)))

	invalid := `{"improved_headers":[{"original":"Next steps"}],"confidence":0.2}`
	assert.Error(t, Validate(Headers, []byte(invalid)))
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"ok"}`))
	assert.Error(t, ValidateJSONString(schema, `{"name":1}`))
}
