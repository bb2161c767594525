package websearch

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	yearPattern  = regexp.MustCompile(`\b(202[0-5])\b`)
	marksPattern = regexp.MustCompile(`(?i)(\d+)\s*marks?`)

	allowedMarks = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 8: true}
)

const maxSnippetQuestion = 200

// BuildQueries expands the templates for kind. Unknown kinds use the general set.
func BuildQueries(subject, topic string, kind Kind) []Query {
	base := fmt.Sprintf("CBSE Class 12 %s %s", subject, topic)

	var suffixes []string
	switch kind {
	case KindBoardQuestions:
		suffixes = []string{"previous year board questions", "CBSE exam questions 2024 2023", "important questions for board exam"}
	case KindQuickNotes:
		suffixes = []string{"quick revision notes", "key points to remember", "formulas and definitions"}
	default:
		kind = KindGeneral
		suffixes = []string{"notes summary", "important concepts", "NCERT solutions"}
	}

	queries := make([]Query, 0, len(suffixes))
	for _, s := range suffixes {
		queries = append(queries, Query{Text: base + " " + s, Kind: kind})
	}
	return queries
}

// PriorQuestionQueries are the fixed templates used to look for past board questions.
func PriorQuestionQueries(subject, topic string) []Query {
	return []Query{
		{Text: fmt.Sprintf("CBSE Class 12 %s %s previous year questions", subject, topic), Kind: KindBoardQuestions},
		{Text: fmt.Sprintf("CBSE %s %s board exam questions 2024 2023 2022", subject, topic), Kind: KindBoardQuestions},
		{Text: fmt.Sprintf("Class 12 %s %s important questions CBSE", subject, topic), Kind: KindBoardQuestions},
	}
}

// ExtractYear returns the first standalone year between 2020 and 2025.
func ExtractYear(text string) (string, bool) {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EstimateMarks reads the first "<n> mark(s)" in text. Only mark values used in
// board papers are accepted.
func EstimateMarks(text string) (int, bool) {
	m := marksPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || !allowedMarks[n] {
		return 0, false
	}
	return n, true
}

// Domain returns the host of link without a leading "www.", or "unknown".
func Domain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func looksLikeQuestion(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(title, "?") || strings.Contains(lower, "question") || strings.Contains(lower, "marks")
}

func questionText(title, snippet string) string {
	if strings.Contains(title, "?") {
		return title
	}
	r := []rune(snippet)
	if len(r) > maxSnippetQuestion {
		r = r[:maxSnippetQuestion]
	}
	return string(r)
}
