// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"precision-engine/internal/common/errors"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
	"precision-engine/internal/common/observability"
	"precision-engine/internal/common/validation"
)

// JobHandler is implemented by every worker package.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	// InputSchema, when set, rejects jobs whose variables do not match before
	// the handler runs.
	InputSchema *validation.Schema
}

// Worker is one open Zeebe job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. Handler panics fail the job
// instead of crashing the process.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, obs *observability.Observability, log logger.Logger) *Worker {
	log = log.With(map[string]interface{}{"taskType": opts.TaskType})
	wrapped := instrument(opts, handler, obs, log)

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(wrapped).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return &Worker{
		worker:   step.Open(),
		logger:   log,
		taskType: opts.TaskType,
	}
}

func (w *Worker) TaskType() string {
	return w.taskType
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func instrument(opts WorkerOptions, handler JobHandler, obs *observability.Observability, log logger.Logger) worker.JobHandler {
	taskType := opts.TaskType
	errorHandler := errors.NewErrorHandler(log)

	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		status := "handled"
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()

		defer func() {
			active.Dec()
			if r := recover(); r != nil {
				status = "panic"
				log.Error("handler panicked", map[string]interface{}{
					"jobKey": job.Key,
					"panic":  fmt.Sprint(r),
				})
				errorHandler.HandleJobError(context.Background(), client, job,
					fmt.Errorf("handler panic: %v", r))
			}
			obs.RecordJobProcessed(context.Background(), taskType, status)
			obs.RecordJobDuration(context.Background(), taskType, time.Since(start), status)
		}()

		if opts.InputSchema != nil {
			if res := opts.InputSchema.Validate([]byte(job.Variables)); !res.Valid {
				status = "rejected"
				metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.ErrCodeInvalidInput)).Inc()
				errorHandler.HandleJobError(context.Background(), client, job,
					errors.NewInvalidInputError(describe(res)))
				return
			}
		}

		handler.Handle(client, job)
	}
}

func describe(res *validation.ValidationResult) string {
	parts := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}
