package websearch

// Kind selects the query templates for a topic search.
type Kind string

const (
	KindGeneral        Kind = "general"
	KindBoardQuestions Kind = "board_questions"
	KindQuickNotes     Kind = "quick_notes"
)

// Query is one templated search string.
type Query struct {
	Text string
	Kind Kind
}

// Hit is a single organic result; Source is the hostname without "www.".
type Hit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source"`
}

// CandidateQuestion is a question located on the web. Year is empty and Marks is
// zero when they could not be detected.
type CandidateQuestion struct {
	Question string `json:"question"`
	Source   string `json:"source"`
	Year     string `json:"year,omitempty"`
	Marks    int    `json:"marks,omitempty"`
}

// Aggregate is the merged output of a topic search.
type Aggregate struct {
	Sources   []Hit               `json:"sources"`
	Snippets  []string            `json:"content_snippets"`
	Questions []CandidateQuestion `json:"board_questions"`
}

func (a *Aggregate) Empty() bool {
	return a == nil || (len(a.Sources) == 0 && len(a.Snippets) == 0 && len(a.Questions) == 0)
}

func emptyAggregate() *Aggregate {
	return &Aggregate{
		Sources:   []Hit{},
		Snippets:  []string{},
		Questions: []CandidateQuestion{},
	}
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type relatedQuestion struct {
	Question string `json:"question"`
}

type serpResponse struct {
	OrganicResults   []organicResult   `json:"organic_results"`
	RelatedQuestions []relatedQuestion `json:"related_questions"`
}
