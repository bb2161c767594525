// internal/workers/study-aid/research-chapter/handler.go
package researchchapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "precision-engine/internal/common/errors"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
	"precision-engine/internal/models"
	"precision-engine/internal/pipeline/research"
)

const (
	TaskType = "research-chapter"
)

var (
	ErrInvalidInput        = errors.New("INVALID_INPUT")
	ErrResearchUnavailable = errors.New("RESEARCH_UNAVAILABLE")
)

// Engine produces the research record for one chapter.
type Engine interface {
	Research(ctx context.Context, subject, chapter string) *research.Result
}

type Handler struct {
	config       *Config
	engine       Engine
	cache        *Cache
	archive      *Archive
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the worker. cache and archive are optional.
func NewHandler(config *Config, engine Engine, cache *Cache, archive *Archive, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		cache:        cache,
		archive:      archive,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, h.toStandardError(err, &input))
		return
	}

	h.completeJob(client, job, output)
}

// Execute serves a cached record when one exists, otherwise runs the engine and
// stores the fresh record. Degraded records are archived but not cached. Cache
// and archive failures are logged, never fatal.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validate(input); err != nil {
		return nil, err
	}
	subject := input.Subject
	chapter := strings.TrimSpace(input.ChapterName)

	if h.cache != nil && !input.ForceRefresh {
		cached, err := h.cache.Get(ctx, subject, chapter)
		if err != nil {
			h.warn("research cache read failed", apperrors.NewCacheFailedError(err))
		}
		if cached != nil {
			h.logger.Info("serving cached research", map[string]interface{}{
				"runId":   cached.RunID,
				"subject": subject,
				"chapter": chapter,
			})
			return newOutput(cached, true, false), nil
		}
	}

	res := h.engine.Research(ctx, subject, chapter)
	if res.Empty() {
		return nil, fmt.Errorf("%w: no subtopics or questions for %s / %s", ErrResearchUnavailable, subject, chapter)
	}

	switch {
	case h.cache == nil:
	case res.Degraded:
		h.logger.Warn("degraded research not cached", map[string]interface{}{
			"runId":    res.RunID,
			"warnings": len(res.Warnings),
		})
	default:
		if err := h.cache.Put(ctx, res); err != nil {
			h.warn("research cache write failed", apperrors.NewCacheFailedError(err))
		}
	}

	archived := false
	if h.archive != nil {
		if err := h.archive.Store(ctx, res); err != nil {
			h.warn("research archive write failed", apperrors.NewArchiveFailedError(h.archive.Index(), err))
		} else {
			archived = true
		}
	}

	return newOutput(res, false, archived), nil
}

func (h *Handler) validate(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrInvalidInput)
	}
	if !models.IsKnownSubject(input.Subject) {
		return fmt.Errorf("%w: subject must be one of %s, got %q",
			ErrInvalidInput, strings.Join(models.SubjectNames(), ", "), input.Subject)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(input.ChapterName))
	if n < h.config.MinChapterLen || n > h.config.MaxChapterLen {
		return fmt.Errorf("%w: chapterName must be %d-%d characters, got %d",
			ErrInvalidInput, h.config.MinChapterLen, h.config.MaxChapterLen, n)
	}
	return nil
}

func newOutput(res *research.Result, cached, archived bool) *Output {
	return &Output{
		RunID:           res.RunID,
		Cached:          cached,
		Archived:        archived,
		Status:          res.Verification.Status,
		ConfidenceScore: res.Verification.ConfidenceScore,
		Warnings:        res.Warnings,
		Result:          res,
	}
}

func (h *Handler) warn(msg string, stdErr *apperrors.StandardError) {
	h.logger.Warn(msg, map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
}

func (h *Handler) toStandardError(err error, input *Input) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrResearchUnavailable):
		return apperrors.NewResearchUnavailableError(input.Subject, input.ChapterName)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(TaskType, err)
	default:
		return apperrors.Normalize(err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
		"cached": output.Cached,
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}
