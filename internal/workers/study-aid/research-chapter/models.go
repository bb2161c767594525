// internal/workers/study-aid/research-chapter/models.go
package researchchapter

import "precision-engine/internal/pipeline/research"

type Input struct {
	UserID       string `json:"userId,omitempty"`
	Subject      string `json:"subject"`
	ChapterName  string `json:"chapterName"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

type Output struct {
	RunID           string                      `json:"runId"`
	Cached          bool                        `json:"cached"`
	Archived        bool                        `json:"archived"`
	Status          research.VerificationStatus `json:"status"`
	ConfidenceScore float64                     `json:"confidenceScore"`
	Warnings        []string                    `json:"warnings,omitempty"`
	Result          *research.Result            `json:"result"`
}
