package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precision-engine/internal/common/logger"
)

type fakeSerp struct {
	srv   *httptest.Server
	calls atomic.Int32
}

// newFakeSerp serves responses keyed by a substring of the q parameter.
func newFakeSerp(t *testing.T, responses map[string]serpResponse, failing ...string) *fakeSerp {
	f := &fakeSerp{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "en", q.Get("hl"))
		assert.Equal(t, "in", q.Get("gl"))
		assert.Equal(t, "10", q.Get("num"))

		for _, frag := range failing {
			if strings.Contains(q.Get("q"), frag) {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}
		for key, resp := range responses {
			if strings.Contains(q.Get("q"), key) {
				_ = json.NewEncoder(w).Encode(resp)
				return
			}
		}
		_ = json.NewEncoder(w).Encode(serpResponse{})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func newTestGateway(t *testing.T, baseURL string, opts Options) *Gateway {
	opts.BaseURL = baseURL
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	return New(opts, nil, logger.NewTestLogger(t))
}

func organic(n int, prefix string) []organicResult {
	out := make([]organicResult, n)
	for i := range out {
		out[i] = organicResult{
			Title:   fmt.Sprintf("%s result %d", prefix, i),
			Link:    fmt.Sprintf("https://www.%s.example.com/%d", prefix, i),
			Snippet: fmt.Sprintf("%s snippet %d", prefix, i),
		}
	}
	return out
}

// ==========================
// Search
// ==========================

func TestSearch_NoAPIKeyMakesNoCalls(t *testing.T) {
	fake := newFakeSerp(t, nil)
	g := New(Options{BaseURL: fake.srv.URL}, nil, logger.NewNoOpLogger())

	agg := g.Search(context.Background(), "Economics", "National Income", KindGeneral)
	questions := g.SearchPriorQuestions(context.Background(), "Economics", "National Income")

	assert.True(t, agg.Empty())
	assert.NotNil(t, agg.Sources)
	assert.Empty(t, questions)
	assert.Equal(t, int32(0), fake.calls.Load())
	assert.False(t, g.Enabled())
}

func TestSearch_AggregatesInQueryOrderAndDedupes(t *testing.T) {
	shared := organicResult{Title: "NCERT notes", Link: "https://www.learncbse.in/money", Snippet: "money notes"}
	fake := newFakeSerp(t, map[string]serpResponse{
		"notes summary": {
			OrganicResults:   append([]organicResult{shared}, organic(6, "summary")...),
			RelatedQuestions: []relatedQuestion{{Question: "What is barter?"}, {Question: ""}},
		},
		"important concepts": {OrganicResults: append([]organicResult{shared}, organic(2, "concepts")...)},
		"NCERT solutions":    {OrganicResults: organic(1, "solutions")},
	})
	g := newTestGateway(t, fake.srv.URL, Options{})

	agg := g.Search(context.Background(), "Economics", "Money and Banking", KindGeneral)

	assert.Equal(t, int32(3), fake.calls.Load())
	// 5 from the first query (shared + 4), 2 new from the second, 1 from the third.
	require.Len(t, agg.Sources, 8)
	assert.Equal(t, "https://www.learncbse.in/money", agg.Sources[0].Link)
	assert.Equal(t, "learncbse.in", agg.Sources[0].Source)
	assert.Equal(t, "concepts result 0", agg.Sources[5].Title)
	assert.Equal(t, "solutions result 0", agg.Sources[7].Title)

	links := map[string]bool{}
	for _, s := range agg.Sources {
		assert.False(t, links[s.Link], "duplicate link %s", s.Link)
		links[s.Link] = true
	}

	assert.Len(t, agg.Snippets, 9)
	require.Len(t, agg.Questions, 1)
	assert.Equal(t, CandidateQuestion{Question: "What is barter?", Source: "people_also_ask"}, agg.Questions[0])
}

func TestSearch_SourceCap(t *testing.T) {
	fake := newFakeSerp(t, map[string]serpResponse{
		"notes summary":      {OrganicResults: organic(5, "a")},
		"important concepts": {OrganicResults: organic(5, "b")},
		"NCERT solutions":    {OrganicResults: organic(5, "c")},
	})
	g := newTestGateway(t, fake.srv.URL, Options{MaxSources: 4})

	agg := g.Search(context.Background(), "Accountancy", "Partnership", KindGeneral)

	assert.Len(t, agg.Sources, 4)
	assert.Len(t, agg.Snippets, 15)
}

func TestSearch_FailedQueryIsSkipped(t *testing.T) {
	fake := newFakeSerp(t, map[string]serpResponse{
		"important concepts": {OrganicResults: organic(2, "ok")},
	}, "notes summary", "NCERT solutions")
	g := newTestGateway(t, fake.srv.URL, Options{})

	agg := g.Search(context.Background(), "Business Studies", "Planning", KindGeneral)

	assert.Equal(t, int32(3), fake.calls.Load())
	assert.Len(t, agg.Sources, 2)
}

func TestSearch_QueryTimeoutIsSkipped(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	g := newTestGateway(t, slow.URL, Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	agg := g.Search(context.Background(), "Economics", "Demand", KindQuickNotes)

	assert.True(t, agg.Empty())
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

// ==========================
// Prior questions
// ==========================

func TestSearchPriorQuestions_Heuristics(t *testing.T) {
	longSnippet := strings.Repeat("x", 250)
	fake := newFakeSerp(t, map[string]serpResponse{
		"previous year questions": {OrganicResults: []organicResult{
			{Title: "What is goodwill? (2023, 3 marks)", Link: "https://www.shaalaa.com/q1", Snippet: "Asked in board exam"},
			{Title: "Goodwill Important Questions", Link: "https://byjus.com/q2", Snippet: "Explain methods of valuing goodwill. 4 Marks. CBSE 2022"},
			{Title: "Chapter overview", Link: "https://example.com/overview", Snippet: "Not a question"},
		}},
		"board exam questions 2024 2023 2022": {OrganicResults: []organicResult{
			{Title: "Sample paper marks scheme", Link: "https://example.org/p", Snippet: longSnippet},
			{Title: "Question bank", Link: "https://example.org/b", Snippet: "7 marks question from 2019"},
		}},
	})
	g := newTestGateway(t, fake.srv.URL, Options{})

	questions := g.SearchPriorQuestions(context.Background(), "Accountancy", "Goodwill")

	require.Len(t, questions, 4)

	assert.Equal(t, CandidateQuestion{Question: "What is goodwill? (2023, 3 marks)", Source: "shaalaa.com", Year: "2023", Marks: 3}, questions[0])
	assert.Equal(t, "Explain methods of valuing goodwill. 4 Marks. CBSE 2022", questions[1].Question)
	assert.Equal(t, "2022", questions[1].Year)
	assert.Equal(t, 4, questions[1].Marks)
	assert.Equal(t, "byjus.com", questions[1].Source)

	assert.Len(t, []rune(questions[2].Question), 200)
	assert.Empty(t, questions[2].Year)
	assert.Zero(t, questions[2].Marks)

	assert.Empty(t, questions[3].Year, "2019 is outside the accepted range")
	assert.Zero(t, questions[3].Marks, "7 is not a board mark value")
}

func TestSearchPriorQuestions_Cap(t *testing.T) {
	many := make([]organicResult, 10)
	for i := range many {
		many[i] = organicResult{Title: fmt.Sprintf("Question %d?", i), Link: fmt.Sprintf("https://q.example/%d", i)}
	}
	fake := newFakeSerp(t, map[string]serpResponse{
		"previous year questions":             {OrganicResults: many},
		"board exam questions 2024 2023 2022": {OrganicResults: many},
		"important questions CBSE":            {OrganicResults: many},
	})
	g := newTestGateway(t, fake.srv.URL, Options{MaxQuestions: 20})

	assert.Len(t, g.SearchPriorQuestions(context.Background(), "Economics", "Money"), 20)
}
