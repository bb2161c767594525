package verification

import "time"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// GenerateOutput is the drafted answer (layer 1).
type GenerateOutput struct {
	Answer             string   `json:"answer"`
	KeyPoints          []string `json:"key_points"`
	ReferencedConcepts []string `json:"referenced_concepts"`
	Confidence         float64  `json:"confidence"`
}

// ValidateOutput is the syllabus review of the draft (layer 2).
type ValidateOutput struct {
	SyllabusAlignment string   `json:"syllabus_alignment"`
	MissingKeywords   []string `json:"missing_keywords"`
	IrrelevantPoints  []string `json:"irrelevant_points"`
	AlignmentScore    float64  `json:"alignment_score"`
}

// AuditOutput lists logical errors found in the draft (layer 3).
type AuditOutput struct {
	LogicalErrors []string `json:"logical_errors"`
	Severity      Severity `json:"severity"`
}

// ScoreOutput is the predicted board-exam score (layer 4).
type ScoreOutput struct {
	PredictedScore    float64  `json:"predicted_score"`
	MaxMarks          int      `json:"max_marks"`
	ScorePercentage   float64  `json:"score_percentage"`
	MissingComponents []string `json:"missing_components"`
}

// Result is the record returned for every processed question, completed or not.
type Result struct {
	RunID              string         `json:"run_id"`
	Layer1             GenerateOutput `json:"layer1_output"`
	Layer2             ValidateOutput `json:"layer2_output"`
	Layer3             AuditOutput    `json:"layer3_output"`
	Layer4             ScoreOutput    `json:"layer4_output"`
	FinalAnswer        string         `json:"final_answer"`
	ConfidenceScore    float64        `json:"confidence_score"`
	ReferencedConcepts []string       `json:"referenced_concepts"`
	Retries            int            `json:"retries"`
	ProcessingTimeMs   int64          `json:"processing_time_ms"`
	Status             Status         `json:"status"`
}

// run holds the state of one Process call. Stage outputs belong to the current
// attempt and are reset on every retry.
type run struct {
	question string
	subject  string
	chapter  string
	context  string

	retries int
	started time.Time
	lastErr error

	generate *GenerateOutput
	validate *ValidateOutput
	audit    *AuditOutput
	score    *ScoreOutput
}

func (r *run) reset() {
	r.generate = nil
	r.validate = nil
	r.audit = nil
	r.score = nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (o *GenerateOutput) normalize() {
	o.Confidence = clamp(o.Confidence, 0, 1)
	o.KeyPoints = nonNil(o.KeyPoints)
	o.ReferencedConcepts = nonNil(o.ReferencedConcepts)
}

func (o *ValidateOutput) normalize() {
	o.AlignmentScore = clamp(o.AlignmentScore, 0, 100)
	o.MissingKeywords = nonNil(o.MissingKeywords)
	o.IrrelevantPoints = nonNil(o.IrrelevantPoints)
}

func (o *AuditOutput) normalize() {
	o.LogicalErrors = nonNil(o.LogicalErrors)
}

func (o *ScoreOutput) normalize() {
	o.PredictedScore = clamp(o.PredictedScore, 0, 100)
	o.ScorePercentage = clamp(o.ScorePercentage, 0, 100)
	if o.MaxMarks < 1 {
		o.MaxMarks = 1
	}
	if o.MaxMarks > 100 {
		o.MaxMarks = 100
	}
	o.MissingComponents = nonNil(o.MissingComponents)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
