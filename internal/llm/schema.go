// Package llm - schema.go builds structured-output instructions for JSON calls.
package llm

import (
	"fmt"
	"strings"
)

// OutputSchema describes the JSON object a structured call must return.
type OutputSchema struct {
	Name   string        // Schema name (e.g., "Detection", "SubjectRefinement")
	Fields []SchemaField // Expected output fields
}

// SchemaField defines a single field in the structured output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "\"string\"", "[\"string\"]", "0.0-1.0"
	Description string // Description for the model
	Required    bool
}

// WithOutputSchema appends the JSON output contract to a system prompt.
func WithOutputSchema(systemPrompt string, schema OutputSchema) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimRight(systemPrompt, "\n"))
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")
	sb.WriteString("- Confidence values are numbers between 0.0 and 1.0.\n")

	return sb.String()
}
