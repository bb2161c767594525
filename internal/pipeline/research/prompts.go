package research

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"precision-engine/internal/gateway/websearch"
)

const (
	promptSources       = 10
	promptSnippets      = 20
	promptSubtopics     = 10
	descriptionPreview  = 100
	auditSubtopics      = 5
	auditPoints         = 3
	auditNotes          = 5
	questionSubtopics   = 8
	groundingQuestions  = 10
	noSearchMaterial    = "(No web search results are available. Work from your own knowledge of the NCERT textbook, lower your confidence accordingly and add a warning that the content was not checked against sources.)"
	noGroundingQuestion = "(No specific questions found in search)"
)

const (
	extractSystem = `You are an expert CBSE Class 12 Commerce curriculum designer with 20+ years of experience.
Your task is to analyze web search results and extract accurate, comprehensive chapter content.

STRICT REQUIREMENTS:
1. ONLY use information from the provided search results
2. If information is missing, state "Information not found in sources" rather than hallucinate
3. Verify all definitions, formulas, and concepts against the provided sources
4. Flag any contradictory information found in different sources

Respond in JSON format with these fields:
- chapter_name: Exact chapter name
- subject: Subject name
- subtopics: Array of objects with {title, description, key_points (array)}
- quick_notes: Array of bullet points for quick revision
- mnemonics: Array of memory aids if applicable
- confidence: Float 0-1 indicating confidence in accuracy
- warnings: Array of any uncertainties or missing information`

	syllabusSystem = `You are a CBSE syllabus expert and fact-checker. Review the extracted chapter content against known CBSE standards.

Verify:
1. Are the subtopics in the correct order as per NCERT?
2. Are all key concepts mentioned in official CBSE syllabus present?
3. Are there any concepts that do NOT belong to this chapter?
4. Check accuracy of all definitions and formulas

Respond in JSON format with:
- syllabus_alignment_score: Float 0-100
- missing_cbse_concepts: Array of concepts that should be included
- incorrect_content: Array of items that seem inaccurate
- suggested_corrections: Array of corrections needed
- verification_status: "verified", "needs_review", or "unreliable"`

	auditSystem = `You are an academic integrity auditor. Check the chapter content for:
1. Logical consistency across subtopics
2. Factual accuracy (dates, formulas, definitions)
3. Completeness - does it cover what a Class 12 student needs?
4. Difficulty level appropriateness

Respond in JSON format with:
- logical_errors: Array of inconsistencies found
- factual_issues: Array of factual concerns
- completeness_score: Float 0-100
- recommendations: Array of improvements`

	questionGenSystem = `You are a CBSE exam expert. Based on the chapter content and typical CBSE patterns, generate:
1. Important questions that commonly appear in board exams
2. Expected answers with CBSE marking scheme
3. Question types (short 2-3 marks, long 4-6 marks)

Respond in JSON format with:
- important_questions: Array of {question, answer, marks, type}
- question_authenticity_score: Float 0-100 (how likely these are real board questions)
- year_wise_distribution: Object with years as keys and question counts as values`
)

func header(subject, chapter string) string {
	return fmt.Sprintf("SUBJECT: %s\nCHAPTER: %s", subject, chapter)
}

func extractPrompt(subject, chapter string, agg *websearch.Aggregate) string {
	var sources []string
	for i, s := range agg.Sources {
		if i == promptSources {
			break
		}
		sources = append(sources, fmt.Sprintf("Source: %s\nTitle: %s\nSnippet: %s", s.Source, s.Title, s.Snippet))
	}
	snippets := agg.Snippets
	if len(snippets) > promptSnippets {
		snippets = snippets[:promptSnippets]
	}

	material := fmt.Sprintf("SEARCH RESULTS FROM WEB:\n%s\n\nCONTENT SNIPPETS:\n%s",
		strings.Join(sources, "\n\n"), strings.Join(snippets, "\n"))
	if len(sources) == 0 && len(snippets) == 0 {
		material = "SEARCH RESULTS FROM WEB:\n" + noSearchMaterial
	}

	return fmt.Sprintf(`%s

%s

Based on the above search results, extract comprehensive chapter content following CBSE Class 12 standards.

IMPORTANT:
- If search results are empty or insufficient, use your knowledge but set confidence appropriately
- Clearly mark any information you're uncertain about
- Include ALL subtopics that belong to this chapter

Respond with JSON containing:
- chapter_name
- subject
- subtopics (array with title, description, key_points array)
- quick_notes (bullet points)
- mnemonics (memory aids)
- confidence (0-1)
- warnings (array of uncertainties)`, header(subject, chapter), material)
}

func syllabusPrompt(subject, chapter string, ext *ExtractOutput) string {
	var lines []string
	for i, st := range ext.Subtopics {
		if i == promptSubtopics {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s...", st.Title, truncate(st.Description, descriptionPreview)))
	}

	return fmt.Sprintf(`%s

PROPOSED CONTENT:
%s

Verify this content against CBSE Class 12 official syllabus:
1. Is this the correct sequence of subtopics?
2. Are all required CBSE concepts present?
3. Is there any content that doesn't belong?

Respond with JSON containing:
- syllabus_alignment_score (0-100)
- missing_cbse_concepts (array)
- incorrect_content (array)
- suggested_corrections (array)
- verification_status ("verified", "needs_review", or "unreliable")`, header(subject, chapter), strings.Join(lines, "\n"))
}

type auditSubtopic struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type auditContent struct {
	Subtopics  []auditSubtopic `json:"subtopics"`
	QuickNotes []string        `json:"quick_notes"`
}

func auditPrompt(subject, chapter string, ext *ExtractOutput) string {
	content := auditContent{Subtopics: []auditSubtopic{}, QuickNotes: head(ext.QuickNotes, auditNotes)}
	for i, st := range ext.Subtopics {
		if i == auditSubtopics {
			break
		}
		content.Subtopics = append(content.Subtopics, auditSubtopic{Title: st.Title, Points: head(st.KeyPoints, auditPoints)})
	}
	summary, _ := json.MarshalIndent(content, "", "  ")

	return fmt.Sprintf(`%s

CONTENT TO AUDIT:
%s

Audit this content for:
1. Logical consistency
2. Factual accuracy
3. Completeness for Class 12 level

Respond with JSON containing:
- logical_errors (array)
- factual_issues (array)
- completeness_score (0-100)
- recommendations (array)`, header(subject, chapter), summary)
}

func questionGenPrompt(subject, chapter string, ext *ExtractOutput, located []websearch.CandidateQuestion) string {
	titles := []string{}
	for i, st := range ext.Subtopics {
		if i == questionSubtopics {
			break
		}
		titles = append(titles, st.Title)
	}
	titlesJSON, _ := json.MarshalIndent(titles, "", "  ")

	var examples []string
	for i, q := range located {
		if i == groundingQuestions {
			break
		}
		year := q.Year
		if year == "" {
			year = "Unknown"
		}
		marks := "?"
		if q.Marks > 0 {
			marks = strconv.Itoa(q.Marks)
		}
		examples = append(examples, fmt.Sprintf("- %s (%s - %s marks)", q.Question, year, marks))
	}
	grounding := strings.Join(examples, "\n")
	if grounding == "" {
		grounding = noGroundingQuestion
	}

	return fmt.Sprintf(`%s

CHAPTER SUBTOPICS:
%s

ACTUAL BOARD QUESTIONS FOUND ONLINE:
%s

Based on the chapter content and typical CBSE patterns, generate:
1. 4-8 important questions with complete answers
2. Include question types: short (2-3 marks), long (4-6 marks)
3. Make questions board-exam realistic and use the questions above only as examples of style, do not copy them
4. Provide detailed CBSE-style answers

Respond with JSON containing:
- important_questions (array of {question, answer, marks, type})
- question_authenticity_score (0-100)
- year_wise_distribution (object)`, header(subject, chapter), titlesJSON, grounding)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return nonNil(s)
}
