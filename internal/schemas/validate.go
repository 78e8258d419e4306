// Package schemas validates structured LLM output against embedded JSON
// Schemas. Model responses are untrusted input: a stage only accepts a
// payload once it passes its schema.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// FieldError is a single validation failure at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates the field errors from one document.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

// Validate checks a JSON document against the named embedded schema
// (e.g. "job_profile" loads job_profile.schema.json).
func Validate(schemaName string, doc []byte) error {
	schemaData, err := schemaFiles.ReadFile(schemaName + ".schema.json")
	if err != nil {
		return fmt.Errorf("unknown schema %q: %w", schemaName, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation for %q could not run: %w", schemaName, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: schemaName}
	for _, re := range result.Errors() {
		verr.Errors = append(verr.Errors, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return verr
}

// ValidateJobProfile checks the Extract stage's structured output.
func ValidateJobProfile(doc []byte) error {
	return Validate("job_profile", doc)
}

// ValidateMatchReport checks the Match stage's structured output.
func ValidateMatchReport(doc []byte) error {
	return Validate("match_report", doc)
}
