package verification

import "precision-engine/internal/common/validation"

var (
	generateSchema = validation.MustSchema("verification.generate", `{
		"type": "object",
		"required": ["answer", "key_points", "referenced_concepts", "confidence"],
		"additionalProperties": false,
		"properties": {
			"answer": {"type": "string", "minLength": 1},
			"key_points": {"type": "array", "items": {"type": "string"}},
			"referenced_concepts": {"type": "array", "items": {"type": "string"}},
			"confidence": {"type": "number"}
		}
	}`)

	validateSchema = validation.MustSchema("verification.validate", `{
		"type": "object",
		"required": ["syllabus_alignment", "missing_keywords", "irrelevant_points", "alignment_score"],
		"additionalProperties": false,
		"properties": {
			"syllabus_alignment": {"type": "string"},
			"missing_keywords": {"type": "array", "items": {"type": "string"}},
			"irrelevant_points": {"type": "array", "items": {"type": "string"}},
			"alignment_score": {"type": "number"}
		}
	}`)

	auditSchema = validation.MustSchema("verification.audit", `{
		"type": "object",
		"required": ["logical_errors", "severity"],
		"additionalProperties": false,
		"properties": {
			"logical_errors": {"type": "array", "items": {"type": "string"}},
			"severity": {"type": "string", "enum": ["none", "low", "medium", "high"]}
		}
	}`)

	scoreSchema = validation.MustSchema("verification.score", `{
		"type": "object",
		"required": ["predicted_score", "max_marks", "score_percentage", "missing_components"],
		"additionalProperties": false,
		"properties": {
			"predicted_score": {"type": "number"},
			"max_marks": {"type": "integer"},
			"score_percentage": {"type": "number"},
			"missing_components": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)
