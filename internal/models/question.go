// internal/models/question.go
package models

import (
	"encoding/json"
	"time"
)

type Question struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	SubjectID    string    `json:"subjectId"`
	ChapterID    *string   `json:"chapterId,omitempty"`
	QuestionText string    `json:"questionText"`
	CreatedAt    time.Time `json:"createdAt"`
	Answer       *Answer   `json:"answer,omitempty"`
}

// Answer stores every stage output as raw JSON so the record survives changes to
// the stage structs.
type Answer struct {
	ID                 string          `json:"id"`
	QuestionID         string          `json:"questionId"`
	Layer1Output       json.RawMessage `json:"layer1Output"`
	Layer2Output       json.RawMessage `json:"layer2Output"`
	Layer3Output       json.RawMessage `json:"layer3Output"`
	Layer4Output       json.RawMessage `json:"layer4Output"`
	FinalAnswer        string          `json:"finalAnswer"`
	ConfidenceScore    float64         `json:"confidenceScore"`
	ReferencedConcepts []string        `json:"referencedConcepts"`
	Retries            int             `json:"retries"`
	ProcessingTimeMs   int64           `json:"processingTimeMs"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
}
