// internal/workers/study-aid/answer-question/handler.go
package answerquestion

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
	"precision-engine/internal/pipeline/verification"
	"precision-engine/internal/store"
)

const (
	TaskType = "answer-question"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Pipeline runs the four verification stages for one question.
type Pipeline interface {
	Process(ctx context.Context, question, subject, chapter string) *verification.Result
}

// Store resolves study context and records questions and answers.
type Store interface {
	ResolveContext(ctx context.Context, subjectID, chapterID string) (*store.StudyContext, error)
	SaveQuestion(ctx context.Context, q *models.Question) error
	SaveAnswer(ctx context.Context, a *models.Answer) error
}

type Handler struct {
	config       *Config
	pipeline     Pipeline
	store        Store
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the worker. st may be nil, in which case nothing is persisted
// and the subject must be passed by name.
func NewHandler(config *Config, pipeline Pipeline, st Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
		store:        st,
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

// Execute answers one question. A pipeline run that ends in the failed state is
// still a result and is persisted like any other.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validate(input); err != nil {
		return nil, err
	}

	subject, chapter := input.Subject, input.Chapter
	var question *models.Question

	if h.store != nil && input.SubjectID != "" {
		sc, err := h.store.ResolveContext(ctx, input.SubjectID, input.ChapterID)
		if err != nil {
			return nil, err
		}
		subject, chapter = sc.Subject.Name, sc.ChapterName()

		question = &models.Question{
			UserID:       input.UserID,
			SubjectID:    input.SubjectID,
			QuestionText: strings.TrimSpace(input.QuestionText),
		}
		if sc.Chapter != nil {
			question.ChapterID = &sc.Chapter.ID
		}
		if err := h.store.SaveQuestion(ctx, question); err != nil {
			return nil, err
		}
	}

	result := h.pipeline.Process(ctx, strings.TrimSpace(input.QuestionText), subject, chapter)

	output := &Output{
		RunID:              result.RunID,
		Status:             result.Status,
		FinalAnswer:        result.FinalAnswer,
		ConfidenceScore:    result.ConfidenceScore,
		ReferencedConcepts: result.ReferencedConcepts,
		Retries:            result.Retries,
		ProcessingTimeMs:   result.ProcessingTimeMs,
		Result:             result,
	}

	if question != nil {
		answer, err := answerRecord(question.ID, result)
		if err != nil {
			return nil, err
		}
		if err := h.store.SaveAnswer(ctx, answer); err != nil {
			return nil, err
		}
		output.QuestionID = question.ID
		output.AnswerID = answer.ID
	}

	h.logger.Info("question answered", map[string]interface{}{
		"runId":      result.RunID,
		"questionId": output.QuestionID,
		"status":     result.Status,
		"confidence": result.ConfidenceScore,
		"retries":    result.Retries,
	})
	return output, nil
}

func (h *Handler) validate(input *Input) error {
	if input == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrInvalidInput)
	}

	n := utf8.RuneCountInString(strings.TrimSpace(input.QuestionText))
	if n < h.config.MinQuestionLen || n > h.config.MaxQuestionLen {
		return fmt.Errorf("%w: questionText must be %d-%d characters, got %d",
			ErrInvalidInput, h.config.MinQuestionLen, h.config.MaxQuestionLen, n)
	}

	if h.store != nil && input.SubjectID != "" {
		if input.UserID == "" {
			return fmt.Errorf("%w: userId is required", ErrInvalidInput)
		}
		return nil
	}

	if input.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if !models.IsKnownSubject(input.Subject) {
		return fmt.Errorf("%w: unknown subject %q", ErrInvalidInput, input.Subject)
	}
	return nil
}

func answerRecord(questionID string, r *verification.Result) (*models.Answer, error) {
	layers := make([]json.RawMessage, 4)
	for i, v := range []interface{}{r.Layer1, r.Layer2, r.Layer3, r.Layer4} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode layer %d: %v", store.ErrPersistenceFailed, i+1, err)
		}
		layers[i] = raw
	}

	return &models.Answer{
		QuestionID:         questionID,
		Layer1Output:       layers[0],
		Layer2Output:       layers[1],
		Layer3Output:       layers[2],
		Layer4Output:       layers[3],
		FinalAnswer:        r.FinalAnswer,
		ConfidenceScore:    r.ConfidenceScore,
		ReferencedConcepts: r.ReferencedConcepts,
		Retries:            r.Retries,
		ProcessingTimeMs:   r.ProcessingTimeMs,
		Status:             string(r.Status),
	}, nil
}

func (h *Handler) toStandardError(err error, input *Input) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, store.ErrSubjectNotFound):
		return apperrors.NewSubjectNotFoundError(input.SubjectID)
	case errors.Is(err, store.ErrChapterNotFound):
		return apperrors.NewChapterNotFoundError(input.ChapterID, input.SubjectID)
	case errors.Is(err, store.ErrPersistenceFailed):
		return apperrors.NewPersistenceFailedError(TaskType, err)
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
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}
