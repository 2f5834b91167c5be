// Package schemas validates inbound JSON payloads against the JSON Schemas embedded in the
// binary.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed job_description.schema.json
var jobDescriptionSchema string

// JobDescription is the name of the job description intake schema.
const JobDescription = "job_description"

var registry = map[string]string{
	JobDescription: jobDescriptionSchema,
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is a single violation at a field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s validation failed:\n", ve.Schema)
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// First returns the first violation.
func (ve *ValidationError) First() FieldError {
	if len(ve.Errors) == 0 {
		return FieldError{Field: "(root)"}
	}
	return ve.Errors[0]
}

// SchemaLoadError reports a schema that could not be compiled or a document that is not JSON.
type SchemaLoadError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("schema %s: %s: %v", e.Schema, e.Message, e.Cause)
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func compile() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, len(registry))
		for name, source := range registry {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
			if err != nil {
				compileErr = &SchemaLoadError{Schema: name, Message: "failed to compile", Cause: err}
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

// Validate checks document against the named embedded schema.
func Validate(name string, document []byte) error {
	schemas, err := compile()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return &SchemaLoadError{Schema: name, Message: "unknown schema"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &SchemaLoadError{Schema: name, Message: "document is not valid JSON", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	return newValidationError(name, result)
}

// ValidateJSONString validates jsonContent against an ad-hoc schema.
func ValidateJSONString(schemaContent, jsonContent string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewStringLoader(jsonContent),
	)
	if err != nil {
		return &SchemaLoadError{Schema: "(string schema)", Message: "failed to load", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	return newValidationError("(string schema)", result)
}

func newValidationError(name string, result *gojsonschema.Result) *ValidationError {
	ve := &ValidationError{
		Schema: name,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
