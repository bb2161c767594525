package research

type VerificationStatus string

const (
	StatusVerified    VerificationStatus = "verified"
	StatusNeedsReview VerificationStatus = "needs_review"
	StatusUnreliable  VerificationStatus = "unreliable"
)

type QuestionType string

const (
	QuestionShort    QuestionType = "short"
	QuestionLong     QuestionType = "long"
	QuestionVeryLong QuestionType = "very_long"
)

const (
	defaultMarks = 4
	shortMarks   = 3
)

// TypeForMarks maps a mark value to the board question type.
func TypeForMarks(marks int) QuestionType {
	if marks <= shortMarks {
		return QuestionShort
	}
	return QuestionLong
}

type Subtopic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"key_points"`
}

// ExtractOutput is the structured chapter content built from search material.
type ExtractOutput struct {
	ChapterName string     `json:"chapter_name"`
	Subject     string     `json:"subject"`
	Subtopics   []Subtopic `json:"subtopics"`
	QuickNotes  []string   `json:"quick_notes"`
	Mnemonics   []string   `json:"mnemonics"`
	Confidence  float64    `json:"confidence"`
	Warnings    []string   `json:"warnings"`
}

type SyllabusOutput struct {
	AlignmentScore       float64            `json:"syllabus_alignment_score"`
	MissingConcepts      []string           `json:"missing_cbse_concepts"`
	IncorrectContent     []string           `json:"incorrect_content"`
	SuggestedCorrections []string           `json:"suggested_corrections"`
	Status               VerificationStatus `json:"verification_status"`
}

type AuditOutput struct {
	LogicalErrors     []string `json:"logical_errors"`
	FactualIssues     []string `json:"factual_issues"`
	CompletenessScore float64  `json:"completeness_score"`
	Recommendations   []string `json:"recommendations"`
}

type GeneratedQuestion struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Marks    int          `json:"marks"`
	Type     QuestionType `json:"type"`
}

type QuestionGenOutput struct {
	ImportantQuestions   []GeneratedQuestion `json:"important_questions"`
	AuthenticityScore    float64             `json:"question_authenticity_score"`
	YearWiseDistribution map[string]float64  `json:"year_wise_distribution"`
}

type BoardQuestion struct {
	Year     string `json:"year"`
	Question string `json:"question"`
	Marks    int    `json:"marks"`
}

type Source struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

type Verification struct {
	Status               VerificationStatus `json:"status"`
	ConfidenceScore      float64            `json:"confidence_score"`
	SyllabusAlignment    float64            `json:"syllabus_alignment"`
	Completeness         float64            `json:"completeness"`
	QuestionAuthenticity float64            `json:"question_authenticity"`
}

// Result is the research record for one chapter. Warnings and Mnemonics are nil
// when there is nothing to report. Degraded is set when any stage failed and was
// replaced by its stand-in.
type Result struct {
	RunID              string              `json:"run_id"`
	ChapterName        string              `json:"chapter_name"`
	Subject            string              `json:"subject"`
	Subtopics          []Subtopic          `json:"subtopics"`
	ImportantQuestions []GeneratedQuestion `json:"important_questions"`
	BoardQuestions     []BoardQuestion     `json:"board_questions"`
	QuickNotes         []string            `json:"quick_notes"`
	Mnemonics          []string            `json:"mnemonics"`
	Sources            []Source            `json:"sources"`
	Verification       Verification        `json:"verification"`
	Warnings           []string            `json:"warnings"`
	Degraded           bool                `json:"degraded"`
	ProcessingTimeMs   int64               `json:"processing_time_ms"`
	GeneratedAt        string              `json:"generated_at"`
}

// Empty reports whether the run produced nothing a student could use.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Subtopics) == 0 && len(r.ImportantQuestions) == 0)
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

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (o *ExtractOutput) normalize() {
	o.Confidence = clamp(o.Confidence, 0, 1)
	if o.Subtopics == nil {
		o.Subtopics = []Subtopic{}
	}
	for i := range o.Subtopics {
		o.Subtopics[i].KeyPoints = nonNil(o.Subtopics[i].KeyPoints)
	}
	o.QuickNotes = nonNil(o.QuickNotes)
	o.Mnemonics = nonNil(o.Mnemonics)
	o.Warnings = nonNil(o.Warnings)
}

func (o *SyllabusOutput) normalize() {
	o.AlignmentScore = clamp(o.AlignmentScore, 0, 100)
	o.MissingConcepts = nonNil(o.MissingConcepts)
	o.IncorrectContent = nonNil(o.IncorrectContent)
	o.SuggestedCorrections = nonNil(o.SuggestedCorrections)
}

func (o *AuditOutput) normalize() {
	o.CompletenessScore = clamp(o.CompletenessScore, 0, 100)
	o.LogicalErrors = nonNil(o.LogicalErrors)
	o.FactualIssues = nonNil(o.FactualIssues)
	o.Recommendations = nonNil(o.Recommendations)
}

func (o *QuestionGenOutput) normalize() {
	o.AuthenticityScore = clamp(o.AuthenticityScore, 0, 100)
	if o.ImportantQuestions == nil {
		o.ImportantQuestions = []GeneratedQuestion{}
	}
	for i := range o.ImportantQuestions {
		q := &o.ImportantQuestions[i]
		if q.Marks <= 0 {
			q.Marks = defaultMarks
		}
		switch q.Type {
		case QuestionShort, QuestionLong, QuestionVeryLong:
		default:
			q.Type = TypeForMarks(q.Marks)
		}
	}
	if o.YearWiseDistribution == nil {
		o.YearWiseDistribution = map[string]float64{}
	}
}
