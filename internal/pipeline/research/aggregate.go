package research

import (
	"fmt"
	"math"
)

const (
	maxImportantQuestions = 15
	maxLocatedInQuestions = 5
	maxBoardQuestions     = 10

	webQuestionAnswer = "(Found via web search - verify independently with official sources)"
	noSourcesWarning  = "No web sources were found; content was generated from model knowledge only and has reduced reliability"
)

func (e *Engine) aggregate(r *run) *Result {
	mean := (r.extract.Confidence*100 + r.syllabus.AlignmentScore + r.audit.CompletenessScore) / 3

	res := &Result{
		ChapterName:        r.chapter,
		Subject:            r.subject,
		Subtopics:          r.extract.Subtopics,
		ImportantQuestions: importantQuestions(r),
		BoardQuestions:     boardQuestions(r),
		QuickNotes:         r.extract.QuickNotes,
		Sources:            e.sources(r),
		Verification: Verification{
			Status:               r.syllabus.Status,
			ConfidenceScore:      math.Round(mean*10) / 10,
			SyllabusAlignment:    r.syllabus.AlignmentScore,
			Completeness:         r.audit.CompletenessScore,
			QuestionAuthenticity: r.questions.AuthenticityScore,
		},
		Warnings: warnings(r),
	}
	if len(r.extract.Mnemonics) > 0 {
		res.Mnemonics = r.extract.Mnemonics
	}
	if res.Verification.Status == "" {
		res.Verification.Status = StatusNeedsReview
	}
	return res
}

func warnings(r *run) []string {
	var out []string
	out = append(out, r.extract.Warnings...)
	out = append(out, r.failures...)

	if n := len(r.syllabus.MissingConcepts); n > 0 {
		out = append(out, fmt.Sprintf("Missing CBSE concepts: %d items", n))
	}
	if n := len(r.audit.FactualIssues); n > 0 {
		out = append(out, fmt.Sprintf("Potential factual issues: %d items", n))
	}
	if len(r.aggregate.Sources) == 0 {
		out = append(out, noSourcesWarning)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// importantQuestions merges generated questions with a few located on the web.
func importantQuestions(r *run) []GeneratedQuestion {
	out := make([]GeneratedQuestion, 0, len(r.questions.ImportantQuestions)+maxLocatedInQuestions)
	out = append(out, r.questions.ImportantQuestions...)

	for i, q := range r.located {
		if i == maxLocatedInQuestions {
			break
		}
		if q.Question == "" {
			continue
		}
		marks := q.Marks
		if marks <= 0 {
			marks = defaultMarks
		}
		out = append(out, GeneratedQuestion{
			Question: q.Question,
			Answer:   webQuestionAnswer,
			Marks:    marks,
			Type:     TypeForMarks(marks),
		})
	}

	if len(out) > maxImportantQuestions {
		out = out[:maxImportantQuestions]
	}
	return out
}

func boardQuestions(r *run) []BoardQuestion {
	out := []BoardQuestion{}
	for i, q := range r.located {
		if i == maxBoardQuestions {
			break
		}
		bq := BoardQuestion{Year: q.Year, Question: q.Question, Marks: q.Marks}
		if bq.Year == "" {
			bq.Year = "Various"
		}
		if bq.Marks <= 0 {
			bq.Marks = defaultMarks
		}
		out = append(out, bq)
	}
	return out
}

func (e *Engine) sources(r *run) []Source {
	out := []Source{}
	seen := make(map[string]bool)
	for _, h := range r.aggregate.Sources {
		if len(out) == e.opts.MaxSources {
			break
		}
		if h.Link == "" || seen[h.Link] {
			continue
		}
		seen[h.Link] = true
		out = append(out, Source{Title: h.Title, Link: h.Link, Source: h.Source})
	}
	return out
}
