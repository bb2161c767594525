// Package validation checks JSON documents against JSON Schema definitions.
// Stage outputs from language models and job inputs from the workflow engine both
// go through it, so nothing partial or unexpected reaches the pipelines.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaMismatch is matched by every *SchemaError.
var ErrSchemaMismatch = errors.New("SCHEMA_MISMATCH")

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaError reports why a document was rejected.
type SchemaError struct {
	Schema string
	Errors []ValidationError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", ve.Field, ve.Message))
	}
	return fmt.Sprintf("%s: %s output rejected: %s", ErrSchemaMismatch, e.Schema, strings.Join(parts, "; "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// Schema is a compiled JSON Schema. It is safe for concurrent use.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

func NewSchema(name, definition string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definition))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

// NewSchemaFromMap compiles a schema held as decoded JSON, as found in the activity registry.
func NewSchemaFromMap(name string, definition map[string]interface{}) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

// MustSchema is NewSchema for package-level definitions.
func MustSchema(name, definition string) *Schema {
	s, err := NewSchema(name, definition)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	return s.name
}

// Validate checks a raw JSON document.
func (s *Schema) Validate(document []byte) *ValidationResult {
	return s.validate(gojsonschema.NewBytesLoader(document))
}

// ValidateInput checks an already decoded document.
func (s *Schema) ValidateInput(input map[string]interface{}) *ValidationResult {
	return s.validate(gojsonschema.NewGoLoader(input))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "MALFORMED_DOCUMENT",
			}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}

// Decode validates document and unmarshals it into v. Nothing is written to v
// when validation fails. Whole-number floats such as 5.0 satisfy "integer" in
// JSON Schema, so they are rewritten as integers before decoding into int fields.
func (s *Schema) Decode(document []byte, v interface{}) error {
	if res := s.Validate(document); !res.Valid {
		return &SchemaError{Schema: s.name, Errors: res.Errors}
	}
	canonical, err := integralNumbers(document)
	if err == nil {
		document = canonical
	}
	if err := json.Unmarshal(document, v); err != nil {
		return &SchemaError{Schema: s.name, Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "DECODE_FAILED",
		}}}
	}
	return nil
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

func integralNumbers(document []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(document))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return json.Marshal(rewriteNumbers(doc))
}

func rewriteNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = rewriteNumbers(child)
		}
	case []interface{}:
		for i, child := range t {
			t[i] = rewriteNumbers(child)
		}
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			return t
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
			return t
		}
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return v
}
