package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema.
type Schema struct {
	compiled *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Compile parses a schema expressed as Go maps.
func Compile(schema map[string]interface{}) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas; it panics on error.
func MustCompile(schema map[string]interface{}) *Schema {
	s, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks an already-decoded JSON document (the result of
// json.Unmarshal into interface{}) against the schema.
func (s *Schema) Validate(document interface{}) *ValidationResult {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "DOCUMENT_UNREADABLE",
			}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}

// Summary joins the error messages into one line for logging.
func (r *ValidationResult) Summary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}
