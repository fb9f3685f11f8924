// Package schemas validates structured payloads against JSON Schema documents.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validator checks documents against one compiled schema.
// It is safe for concurrent use.
type Validator struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses a JSON Schema given as a string.
func Compile(name, schemaContent string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "invalid schema", Cause: err}
	}
	return &Validator{name: name, schema: schema}, nil
}

// ValidateString validates raw JSON text.
func (v *Validator) ValidateString(jsonContent string) error {
	return v.validate(gojsonschema.NewStringLoader(jsonContent))
}

// ValidateValue validates an already decoded Go value.
func (v *Validator) ValidateValue(doc any) error {
	return v.validate(gojsonschema.NewGoLoader(doc))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) error {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("failed to load document for schema %s: %w", v.name, err)
	}
	if result.Valid() {
		return nil
	}
	return toValidationError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	v, err := Compile("(string schema)", schemaContent)
	if err != nil {
		return err
	}
	return v.ValidateString(jsonContent)
}

var (
	compiled   = make(map[string]*Validator)
	compiledMu sync.Mutex
)

// Cached compiles a schema once per name and reuses it afterwards.
func Cached(name, schemaContent string) (*Validator, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if v, ok := compiled[name]; ok {
		return v, nil
	}
	v, err := Compile(name, schemaContent)
	if err != nil {
		return nil, err
	}
	compiled[name] = v
	return v, nil
}

func toValidationError(result *gojsonschema.Result) *ValidationError {
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
