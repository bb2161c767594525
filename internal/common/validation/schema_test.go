package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditSchema = `{
  "type": "object",
  "required": ["logical_errors", "severity"],
  "additionalProperties": false,
  "properties": {
    "logical_errors": {"type": "array", "items": {"type": "string"}},
    "severity": {"type": "string", "enum": ["none", "low", "medium", "high"]}
  }
}`

type auditOutput struct {
	LogicalErrors []string `json:"logical_errors"`
	Severity      string   `json:"severity"`
}

func TestSchema_DecodeValid(t *testing.T) {
	s := MustSchema("audit", auditSchema)

	var out auditOutput
	err := s.Decode([]byte(`{"logical_errors": ["circular reasoning"], "severity": "low"}`), &out)

	require.NoError(t, err)
	assert.Equal(t, "low", out.Severity)
	assert.Equal(t, []string{"circular reasoning"}, out.LogicalErrors)
}

func TestSchema_DecodeRejects(t *testing.T) {
	s := MustSchema("audit", auditSchema)

	tests := []struct {
		name string
		doc  string
	}{
		{"missing field", `{"logical_errors": []}`},
		{"unknown enum", `{"logical_errors": [], "severity": "critical"}`},
		{"extra field", `{"logical_errors": [], "severity": "none", "notes": "x"}`},
		{"wrong type", `{"logical_errors": "none", "severity": "none"}`},
		{"not json", `severity: none`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := auditOutput{Severity: "untouched"}
			err := s.Decode([]byte(tt.doc), &out)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaMismatch))
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, "audit", schemaErr.Schema)
			assert.NotEmpty(t, schemaErr.Errors)
			assert.Equal(t, "untouched", out.Severity)
		})
	}
}

func TestSchema_DecodeWholeNumberFloatIntoInt(t *testing.T) {
	s := MustSchema("score", `{
		"type": "object",
		"required": ["max_marks", "score_percentage"],
		"properties": {
			"max_marks": {"type": "integer"},
			"score_percentage": {"type": "number"},
			"items": {"type": "array", "items": {"type": "object", "properties": {"marks": {"type": "integer"}}}}
		}
	}`)

	var out struct {
		MaxMarks        int     `json:"max_marks"`
		ScorePercentage float64 `json:"score_percentage"`
		Items           []struct {
			Marks int `json:"marks"`
		} `json:"items"`
	}
	err := s.Decode([]byte(`{"max_marks": 5.0, "score_percentage": 87.5, "items": [{"marks": 4.0}, {"marks": 6}, {"marks": 3e0}]}`), &out)

	require.NoError(t, err)
	assert.Equal(t, 5, out.MaxMarks)
	assert.Equal(t, 87.5, out.ScorePercentage)
	require.Len(t, out.Items, 3)
	assert.Equal(t, 4, out.Items[0].Marks)
	assert.Equal(t, 6, out.Items[1].Marks)
	assert.Equal(t, 3, out.Items[2].Marks)

	err = s.Decode([]byte(`{"max_marks": 4.5, "score_percentage": 90}`), &out)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSchema_ValidateInputFromMap(t *testing.T) {
	s, err := NewSchemaFromMap("research-input", map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"subject"},
		"properties": map[string]interface{}{
			"subject": map[string]interface{}{"type": "string", "minLength": 1},
		},
	})
	require.NoError(t, err)

	assert.True(t, s.ValidateInput(map[string]interface{}{"subject": "Economics"}).Valid)

	res := s.ValidateInput(map[string]interface{}{})
	assert.False(t, res.Valid)
	assert.Equal(t, "REQUIRED", res.Errors[0].Code)
}

func TestNewSchema_InvalidDefinition(t *testing.T) {
	_, err := NewSchema("broken", `{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustSchema("broken", `{`) })
}
