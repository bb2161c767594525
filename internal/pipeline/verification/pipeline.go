// Package verification runs a question through four model stages (generate,
// validate, audit, score) and restarts the whole run when a quality gate fails.
package verification

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"precision-engine/internal/common/config"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
	"precision-engine/internal/common/validation"
	"precision-engine/internal/gateway/llm"
)

const (
	pipelineName = "verification"

	minConfidence   = 0.6
	minAlignment    = 75.0
	minScore        = 75.0
	addendumCutoff  = 90.0
	maxAddendumTips = 3

	failedMaxMarks = 5
)

// Generator is the part of the provider gateway the pipeline depends on.
type Generator interface {
	GenerateStructured(ctx context.Context, req llm.Request) (*llm.Result, error)
}

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// gate names the check that ended an attempt early.
type gate string

const (
	gatePassed        gate = ""
	gateLowConfidence gate = "low_confidence"
	gateLowAlignment  gate = "low_alignment"
	gateHighSeverity  gate = "high_severity"
	gateLowScore      gate = "low_score"
	gateStageError    gate = "stage_error"
)

type Pipeline struct {
	gen    Generator
	opts   Options
	logger logger.Logger
	tracer trace.Tracer
}

func New(gen Generator, opts Options, log logger.Logger) *Pipeline {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Pipeline{
		gen:    gen,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "verification-pipeline"}),
		tracer: otel.Tracer("precision-engine/verification"),
	}
}

func NewFromConfig(gen Generator, cfg config.PipelineConfig, log logger.Logger) *Pipeline {
	return New(gen, Options{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: config.GetDuration(cfg.RetryDelay),
	}, log)
}

// Process answers question and always returns a well-formed record. When the retry
// budget runs out on a stage error the record has status "failed". A cancelled or
// expired ctx also ends the run as "failed", and Retries may be below the budget.
func (p *Pipeline) Process(ctx context.Context, question, subject, chapter string) *Result {
	r := &run{
		question: question,
		subject:  subject,
		chapter:  chapter,
		context:  buildContext(subject, chapter),
		started:  time.Now(),
	}
	runID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, "verification.process", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("subject", subject),
	))
	defer span.End()

	log := p.logger.With(map[string]interface{}{"runId": runID})

	for {
		g, err := p.attempt(ctx, r)

		if err != nil {
			r.lastErr = err
			if r.retries >= p.opts.MaxRetries || ctx.Err() != nil {
				log.Error("pipeline failed", map[string]interface{}{
					"retries": r.retries,
					"error":   err.Error(),
				})
				span.SetStatus(codes.Error, err.Error())
				return p.finish(runID, r, failedResult(r))
			}
			p.retry(log, r, gateStageError, err)
			if sleepErr := sleep(ctx, p.opts.RetryDelay); sleepErr != nil {
				r.lastErr = sleepErr
				return p.finish(runID, r, failedResult(r))
			}
			continue
		}

		if g != gatePassed {
			p.retry(log, r, g, nil)
			continue
		}

		log.Info("pipeline completed", map[string]interface{}{
			"retries":    r.retries,
			"confidence": r.generate.Confidence,
			"alignment":  r.validate.AlignmentScore,
			"percentage": r.score.ScorePercentage,
		})
		return p.finish(runID, r, completedResult(r))
	}
}

func (p *Pipeline) retry(log logger.Logger, r *run, g gate, err error) {
	r.retries++
	r.reset()
	metrics.PipelineRetries.WithLabelValues(pipelineName, string(g)).Inc()

	fields := map[string]interface{}{
		"gate":    string(g),
		"retries": r.retries,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.Warn("restarting pipeline", fields)
}

func (p *Pipeline) finish(runID string, r *run, res *Result) *Result {
	res.RunID = runID
	res.Retries = r.retries
	res.ProcessingTimeMs = time.Since(r.started).Milliseconds()

	metrics.PipelineRuns.WithLabelValues(pipelineName, string(res.Status)).Inc()
	metrics.PipelineDuration.WithLabelValues(pipelineName).Observe(time.Since(r.started).Seconds())
	return res
}

func (p *Pipeline) attempt(ctx context.Context, r *run) (gate, error) {
	ctx, span := p.tracer.Start(ctx, "verification.attempt", trace.WithAttributes(
		attribute.Int("retries", r.retries),
	))
	defer span.End()

	g, err := p.runOnce(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return gatePassed, err
	}
	span.SetAttributes(attribute.String("gate", string(g)))
	return g, nil
}

// runOnce executes the four stages once and reports the gate that stopped the
// attempt, or gatePassed when every stage output is in r.
func (p *Pipeline) runOnce(ctx context.Context, r *run) (gate, error) {
	var gen GenerateOutput
	if err := p.stage(ctx, "generate", generateSchema, llm.Request{
		Prompt:             generatePrompt(r),
		SystemInstructions: generateSystem,
		Temperature:        llm.Temperature(0.4),
	}, &gen); err != nil {
		return gatePassed, err
	}
	gen.normalize()
	r.generate = &gen

	// Only the first attempt is held to the confidence floor.
	if gen.Confidence < minConfidence && r.retries == 0 && p.opts.MaxRetries > 0 {
		return gateLowConfidence, nil
	}

	var val ValidateOutput
	if err := p.stage(ctx, "validate", validateSchema, llm.Request{
		Prompt:             validatePrompt(r),
		SystemInstructions: validateSystem,
		Temperature:        llm.Temperature(0.3),
	}, &val); err != nil {
		return gatePassed, err
	}
	val.normalize()
	r.validate = &val

	if val.AlignmentScore < minAlignment && r.retries < p.opts.MaxRetries {
		return gateLowAlignment, nil
	}

	var aud AuditOutput
	if err := p.stage(ctx, "audit", auditSchema, llm.Request{
		Prompt:             auditPrompt(r),
		SystemInstructions: auditSystem,
		Temperature:        llm.Temperature(0.3),
	}, &aud); err != nil {
		return gatePassed, err
	}
	aud.normalize()
	r.audit = &aud

	if aud.Severity == SeverityHigh && r.retries < p.opts.MaxRetries {
		return gateHighSeverity, nil
	}

	var sc ScoreOutput
	if err := p.stage(ctx, "score", scoreSchema, llm.Request{
		Prompt:             scorePrompt(r),
		SystemInstructions: scoreSystem,
		Temperature:        llm.Temperature(0.2),
	}, &sc); err != nil {
		return gatePassed, err
	}
	sc.normalize()
	r.score = &sc

	if sc.ScorePercentage < minScore && r.retries < p.opts.MaxRetries {
		return gateLowScore, nil
	}

	return gatePassed, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, schema *validation.Schema, req llm.Request, out interface{}) error {
	ctx, span := p.tracer.Start(ctx, "verification."+name)
	defer span.End()

	res, err := p.gen.GenerateStructured(ctx, req)
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

func completedResult(r *run) *Result {
	confidence := math.Min(r.generate.Confidence*100, math.Min(r.validate.AlignmentScore, r.score.ScorePercentage))

	return &Result{
		Layer1:             *r.generate,
		Layer2:             *r.validate,
		Layer3:             *r.audit,
		Layer4:             *r.score,
		FinalAnswer:        finalAnswer(r.generate, r.score),
		ConfidenceScore:    round(confidence, 2),
		ReferencedConcepts: r.generate.ReferencedConcepts,
		Status:             StatusCompleted,
	}
}

func finalAnswer(gen *GenerateOutput, sc *ScoreOutput) string {
	var b strings.Builder
	b.WriteString(gen.Answer)

	if len(sc.MissingComponents) > 0 && sc.ScorePercentage < addendumCutoff {
		b.WriteString("\n\n---\n**Additional Points for Higher Score:**\n")
		for i, c := range sc.MissingComponents {
			if i == maxAddendumTips {
				break
			}
			b.WriteString("- " + c + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func failedResult(r *run) *Result {
	errMsg := ""
	if r.lastErr != nil {
		errMsg = fmt.Sprintf(" (Error: %s)", r.lastErr.Error())
	}

	return &Result{
		Layer1: GenerateOutput{
			Answer:             "We apologize, but we were unable to generate a high-quality answer after multiple attempts.",
			KeyPoints:          []string{},
			ReferencedConcepts: []string{},
		},
		Layer2: ValidateOutput{
			SyllabusAlignment: "N/A - Generation failed",
			MissingKeywords:   []string{},
			IrrelevantPoints:  []string{},
		},
		Layer3: AuditOutput{
			LogicalErrors: []string{},
			Severity:      SeverityNone,
		},
		Layer4: ScoreOutput{
			MaxMarks:          failedMaxMarks,
			MissingComponents: []string{},
		},
		FinalAnswer: fmt.Sprintf(`We apologize, but we encountered difficulties generating a reliable answer for your question after %d attempts%s.

**Your Question:** %s

**What you can try:**
1. Rephrase your question with more specific terms
2. Break down complex questions into simpler parts
3. Check that your question relates to CBSE Class 12 Commerce syllabus

If the problem persists, please try again later.`, r.retries, errMsg, r.question),
		ReferencedConcepts: []string{},
		Status:             StatusFailed,
	}
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
