// Package websearch queries a SerpAPI-compatible search endpoint for chapter
// material and previously asked board questions.
package websearch

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"precision-engine/internal/common/config"
	commonhttp "precision-engine/internal/common/http"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
)

const (
	hitsPerTopicQuery    = 5
	relatedPerTopicQuery = 5
	hitsPerPriorQuery    = 10
	resultsRequested     = 10
)

type Options struct {
	BaseURL      string
	APIKey       string
	Engine       string
	Language     string
	Country      string
	Timeout      time.Duration
	MaxSources   int
	MaxQuestions int
}

// Gateway runs templated queries concurrently and merges what comes back. Query
// failures are logged and skipped; the gateway itself never returns an error.
type Gateway struct {
	opts   Options
	client *commonhttp.Client
	logger logger.Logger
}

func New(opts Options, client *commonhttp.Client, log logger.Logger) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://serpapi.com/search"
	}
	if opts.Engine == "" {
		opts.Engine = "google"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Country == "" {
		opts.Country = "in"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 15
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 20
	}
	if client == nil {
		client = commonhttp.NewClient(opts.Timeout)
	}
	return &Gateway{
		opts:   opts,
		client: client,
		logger: log.With(map[string]interface{}{"component": "websearch"}),
	}
}

func NewFromConfig(cfg config.SearchConfig, log logger.Logger) *Gateway {
	timeout := config.GetDuration(cfg.Timeout)
	return New(Options{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Engine:       cfg.Engine,
		Language:     cfg.Language,
		Country:      cfg.Country,
		Timeout:      timeout,
		MaxSources:   cfg.MaxSources,
		MaxQuestions: cfg.MaxQuestions,
	}, commonhttp.NewClient(timeout), log)
}

// Enabled reports whether a search credential is configured.
func (g *Gateway) Enabled() bool {
	return g.opts.APIKey != ""
}

// Search runs the templates for kind and aggregates the top hits of each query in
// query order. Sources are unique by link and capped at MaxSources.
func (g *Gateway) Search(ctx context.Context, subject, topic string, kind Kind) *Aggregate {
	agg := emptyAggregate()
	if !g.Enabled() {
		g.logger.Debug("search skipped, no api key", nil)
		return agg
	}

	responses := g.runAll(ctx, BuildQueries(subject, topic, kind))

	seen := make(map[string]bool)
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		for i, r := range resp.OrganicResults {
			if i == hitsPerTopicQuery {
				break
			}
			if r.Snippet != "" {
				agg.Snippets = append(agg.Snippets, r.Snippet)
			}
			if r.Link == "" || seen[r.Link] || len(agg.Sources) >= g.opts.MaxSources {
				continue
			}
			seen[r.Link] = true
			agg.Sources = append(agg.Sources, Hit{
				Title:   r.Title,
				Link:    r.Link,
				Snippet: r.Snippet,
				Source:  Domain(r.Link),
			})
		}
		for i, rq := range resp.RelatedQuestions {
			if i == relatedPerTopicQuery || len(agg.Questions) >= g.opts.MaxQuestions {
				break
			}
			if rq.Question == "" {
				continue
			}
			agg.Questions = append(agg.Questions, CandidateQuestion{
				Question: rq.Question,
				Source:   "people_also_ask",
			})
		}
	}

	g.logger.Info("search aggregated", map[string]interface{}{
		"subject":   subject,
		"topic":     topic,
		"kind":      string(kind),
		"sources":   len(agg.Sources),
		"snippets":  len(agg.Snippets),
		"questions": len(agg.Questions),
	})
	return agg
}

// SearchPriorQuestions looks for previously asked board questions and tags each
// with the year and marks found in its text.
func (g *Gateway) SearchPriorQuestions(ctx context.Context, subject, topic string) []CandidateQuestion {
	questions := []CandidateQuestion{}
	if !g.Enabled() {
		return questions
	}

	for _, resp := range g.runAll(ctx, PriorQuestionQueries(subject, topic)) {
		if resp == nil {
			continue
		}
		for i, r := range resp.OrganicResults {
			if i == hitsPerPriorQuery || len(questions) >= g.opts.MaxQuestions {
				break
			}
			if !looksLikeQuestion(r.Title) {
				continue
			}
			text := r.Title + " " + r.Snippet
			q := CandidateQuestion{
				Question: questionText(r.Title, r.Snippet),
				Source:   Domain(r.Link),
			}
			if year, ok := ExtractYear(text); ok {
				q.Year = year
			}
			if marks, ok := EstimateMarks(text); ok {
				q.Marks = marks
			}
			questions = append(questions, q)
		}
	}
	return questions
}

// runAll issues every query concurrently. The slot of a failed query stays nil.
func (g *Gateway) runAll(ctx context.Context, queries []Query) []*serpResponse {
	responses := make([]*serpResponse, len(queries))

	var eg errgroup.Group
	for i, q := range queries {
		eg.Go(func() error {
			resp, err := g.query(ctx, q.Text)
			if err != nil {
				metrics.SearchQueries.WithLabelValues("failed").Inc()
				g.logger.Warn("search query failed", map[string]interface{}{
					"query": q.Text,
					"error": err.Error(),
				})
				return nil
			}
			metrics.SearchQueries.WithLabelValues("success").Inc()
			responses[i] = resp
			return nil
		})
	}
	_ = eg.Wait()

	return responses
}

func (g *Gateway) query(ctx context.Context, text string) (*serpResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", text)
	params.Set("api_key", g.opts.APIKey)
	params.Set("engine", g.opts.Engine)
	params.Set("hl", g.opts.Language)
	params.Set("gl", g.opts.Country)
	params.Set("num", strconv.Itoa(resultsRequested))

	var resp serpResponse
	if err := g.client.GetJSON(ctx, g.opts.BaseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
