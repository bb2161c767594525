package research

import "precision-engine/internal/common/validation"

var (
	extractSchema = validation.MustSchema("research.extract", `{
		"type": "object",
		"required": ["subtopics", "confidence"],
		"additionalProperties": false,
		"properties": {
			"chapter_name": {"type": "string"},
			"subject": {"type": "string"},
			"subtopics": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title"],
					"additionalProperties": false,
					"properties": {
						"title": {"type": "string"},
						"description": {"type": "string"},
						"key_points": {"type": "array", "items": {"type": "string"}}
					}
				}
			},
			"quick_notes": {"type": "array", "items": {"type": "string"}},
			"mnemonics": {"type": "array", "items": {"type": "string"}},
			"confidence": {"type": "number"},
			"warnings": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	syllabusSchema = validation.MustSchema("research.syllabus", `{
		"type": "object",
		"required": ["syllabus_alignment_score", "missing_cbse_concepts", "incorrect_content", "suggested_corrections", "verification_status"],
		"additionalProperties": false,
		"properties": {
			"syllabus_alignment_score": {"type": "number"},
			"missing_cbse_concepts": {"type": "array", "items": {"type": "string"}},
			"incorrect_content": {"type": "array", "items": {"type": "string"}},
			"suggested_corrections": {"type": "array", "items": {"type": "string"}},
			"verification_status": {"type": "string", "enum": ["verified", "needs_review", "unreliable"]}
		}
	}`)

	auditSchema = validation.MustSchema("research.audit", `{
		"type": "object",
		"required": ["logical_errors", "factual_issues", "completeness_score", "recommendations"],
		"additionalProperties": false,
		"properties": {
			"logical_errors": {"type": "array", "items": {"type": "string"}},
			"factual_issues": {"type": "array", "items": {"type": "string"}},
			"completeness_score": {"type": "number"},
			"recommendations": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	questionGenSchema = validation.MustSchema("research.questions", `{
		"type": "object",
		"required": ["important_questions", "question_authenticity_score"],
		"additionalProperties": false,
		"properties": {
			"important_questions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["question", "answer"],
					"additionalProperties": false,
					"properties": {
						"question": {"type": "string", "minLength": 1},
						"answer": {"type": "string"},
						"marks": {"type": "integer"},
						"type": {"type": "string"}
					}
				}
			},
			"question_authenticity_score": {"type": "number"},
			"year_wise_distribution": {"type": "object", "additionalProperties": {"type": "number"}}
		}
	}`)
)
