// Package research builds a verified study pack for one chapter: web search,
// content extraction, then syllabus check, audit and question generation run
// side by side. Stage failures degrade the result instead of aborting it.
package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"precision-engine/internal/common/config"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
	"precision-engine/internal/common/validation"
	"precision-engine/internal/gateway/llm"
	"precision-engine/internal/gateway/websearch"
)

const (
	pipelineName      = "research"
	defaultMaxSources = 10
	maxSourcesCap     = 15
)

// Generator is the part of the provider gateway the engine depends on.
type Generator interface {
	GenerateStructured(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// Searcher is the part of the search gateway the engine depends on.
type Searcher interface {
	Search(ctx context.Context, subject, topic string, kind websearch.Kind) *websearch.Aggregate
	SearchPriorQuestions(ctx context.Context, subject, topic string) []websearch.CandidateQuestion
}

type Options struct {
	MaxSources int
}

type Engine struct {
	gen    Generator
	search Searcher
	opts   Options
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func New(gen Generator, search Searcher, opts Options, log logger.Logger) *Engine {
	if opts.MaxSources <= 0 {
		opts.MaxSources = defaultMaxSources
	}
	if opts.MaxSources > maxSourcesCap {
		opts.MaxSources = maxSourcesCap
	}
	return &Engine{
		gen:    gen,
		search: search,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "research-engine"}),
		tracer: otel.Tracer("precision-engine/research"),
		now:    time.Now,
	}
}

func NewFromConfig(gen Generator, search Searcher, cfg config.ResearchConfig, log logger.Logger) *Engine {
	return New(gen, search, Options{MaxSources: cfg.MaxSources}, log)
}

// run carries one chapter's intermediate outputs.
type run struct {
	subject string
	chapter string

	aggregate *websearch.Aggregate
	located   []websearch.CandidateQuestion

	extract   ExtractOutput
	syllabus  SyllabusOutput
	audit     AuditOutput
	questions QuestionGenOutput

	extractFailed bool
	// review stage failure notices in stage order
	failures []string
}

// Research always returns a populated record; the worst case is a low
// confidence score with warnings explaining what went missing.
func (e *Engine) Research(ctx context.Context, subject, chapter string) *Result {
	started := e.now()
	runID := uuid.NewString()

	ctx, span := e.tracer.Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("subject", subject),
		attribute.String("chapter", chapter),
	))
	defer span.End()

	log := e.logger.With(map[string]interface{}{
		"runId":   runID,
		"subject": subject,
		"chapter": chapter,
	})

	r := &run{subject: subject, chapter: chapter}
	e.gather(ctx, r)

	if err := e.stage(ctx, "extract", extractSchema, llm.Request{
		Prompt:             extractPrompt(subject, chapter, r.aggregate),
		SystemInstructions: extractSystem,
		Temperature:        llm.Temperature(0.3),
		MaxOutputTokens:    4000,
	}, &r.extract); err != nil {
		log.Warn("extract stage failed, continuing without content", map[string]interface{}{"error": err.Error()})
		r.extractFailed = true
		r.extract = ExtractOutput{
			ChapterName: chapter,
			Subject:     subject,
			Warnings:    []string{"Content extraction failed: " + err.Error()},
		}
	}
	r.extract.normalize()

	e.review(ctx, log, r)

	res := e.aggregate(r)
	res.RunID = runID
	res.ProcessingTimeMs = e.now().Sub(started).Milliseconds()
	res.GeneratedAt = e.now().UTC().Format(time.RFC3339)

	res.Degraded = r.extractFailed || len(r.failures) > 0

	status := "completed"
	if res.Degraded {
		status = "degraded"
	}
	metrics.PipelineRuns.WithLabelValues(pipelineName, status).Inc()
	metrics.PipelineDuration.WithLabelValues(pipelineName).Observe(time.Since(started).Seconds())
	span.SetAttributes(
		attribute.Float64("confidence", res.Verification.ConfidenceScore),
		attribute.Int("sources", len(res.Sources)),
	)

	log.Info("chapter research completed", map[string]interface{}{
		"confidence": res.Verification.ConfidenceScore,
		"status":     string(res.Verification.Status),
		"subtopics":  len(res.Subtopics),
		"questions":  len(res.ImportantQuestions),
		"sources":    len(res.Sources),
		"warnings":   len(res.Warnings),
	})
	return res
}

// gather runs the topic search and the prior-question search concurrently.
func (e *Engine) gather(ctx context.Context, r *run) {
	ctx, span := e.tracer.Start(ctx, "research.search")
	defer span.End()

	var eg errgroup.Group
	eg.Go(func() error {
		r.aggregate = e.search.Search(ctx, r.subject, r.chapter, websearch.KindGeneral)
		return nil
	})
	eg.Go(func() error {
		r.located = e.search.SearchPriorQuestions(ctx, r.subject, r.chapter)
		return nil
	})
	_ = eg.Wait()

	if r.aggregate == nil {
		r.aggregate = &websearch.Aggregate{}
	}
	if r.located == nil {
		r.located = []websearch.CandidateQuestion{}
	}
	span.SetAttributes(
		attribute.Int("sources", len(r.aggregate.Sources)),
		attribute.Int("located_questions", len(r.located)),
	)
}

// review runs the three stages that only depend on the extracted content.
func (e *Engine) review(ctx context.Context, log logger.Logger, r *run) {
	failures := make([]string, 3)

	var eg errgroup.Group
	eg.Go(func() error {
		err := e.stage(ctx, "syllabus", syllabusSchema, llm.Request{
			Prompt:             syllabusPrompt(r.subject, r.chapter, &r.extract),
			SystemInstructions: syllabusSystem,
			Temperature:        llm.Temperature(0.2),
			MaxOutputTokens:    2000,
		}, &r.syllabus)
		if err != nil {
			r.syllabus = SyllabusOutput{Status: StatusUnreliable}
			failures[0] = "SyllabusCheck failed: " + err.Error()
		}
		r.syllabus.normalize()
		return nil
	})
	eg.Go(func() error {
		err := e.stage(ctx, "audit", auditSchema, llm.Request{
			Prompt:             auditPrompt(r.subject, r.chapter, &r.extract),
			SystemInstructions: auditSystem,
			Temperature:        llm.Temperature(0.2),
			MaxOutputTokens:    2000,
		}, &r.audit)
		if err != nil {
			r.audit = AuditOutput{}
			failures[1] = "Audit failed: " + err.Error()
		}
		r.audit.normalize()
		return nil
	})
	eg.Go(func() error {
		err := e.stage(ctx, "questions", questionGenSchema, llm.Request{
			Prompt:             questionGenPrompt(r.subject, r.chapter, &r.extract, r.located),
			SystemInstructions: questionGenSystem,
			Temperature:        llm.Temperature(0.4),
			MaxOutputTokens:    6000,
		}, &r.questions)
		if err != nil {
			r.questions = QuestionGenOutput{}
			failures[2] = "QuestionGen failed: " + err.Error()
		}
		r.questions.normalize()
		return nil
	})
	_ = eg.Wait()

	for _, f := range failures {
		if f == "" {
			continue
		}
		log.Warn("research stage failed, using stand-in", map[string]interface{}{"error": f})
		r.failures = append(r.failures, f)
	}
}

func (e *Engine) stage(ctx context.Context, name string, schema *validation.Schema, req llm.Request, out interface{}) error {
	ctx, span := e.tracer.Start(ctx, "research."+name)
	defer span.End()

	res, err := e.gen.GenerateStructured(ctx, req)
	if err == nil {
		span.SetAttributes(attribute.String("provider", res.Provider))
		err = schema.Decode(res.Payload, out)
	}
	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues(pipelineName, name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}
