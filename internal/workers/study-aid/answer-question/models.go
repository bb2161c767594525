// internal/workers/study-aid/answer-question/models.go
package answerquestion

import "precision-engine/internal/pipeline/verification"

// Input identifies the subject either by id (resolved through the store) or by
// name when the worker runs without a database.
type Input struct {
	UserID       string `json:"userId"`
	SubjectID    string `json:"subjectId,omitempty"`
	ChapterID    string `json:"chapterId,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Chapter      string `json:"chapter,omitempty"`
	QuestionText string `json:"questionText"`
}

type Output struct {
	QuestionID         string               `json:"questionId,omitempty"`
	AnswerID           string               `json:"answerId,omitempty"`
	RunID              string               `json:"runId"`
	Status             verification.Status  `json:"status"`
	FinalAnswer        string               `json:"finalAnswer"`
	ConfidenceScore    float64              `json:"confidenceScore"`
	ReferencedConcepts []string             `json:"referencedConcepts"`
	Retries            int                  `json:"retries"`
	ProcessingTimeMs   int64                `json:"processingTimeMs"`
	Result             *verification.Result `json:"result"`
}
