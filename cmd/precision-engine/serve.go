// cmd/precision-engine/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"precision-engine/internal/common/camunda"
	"precision-engine/internal/common/config"
	"precision-engine/internal/common/observability"
	answerquestion "precision-engine/internal/workers/study-aid/answer-question"
	researchchapter "precision-engine/internal/workers/study-aid/research-chapter"
	"precision-engine/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Zeebe job workers and the health/metrics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	log.Info("Starting precision engine...", map[string]interface{}{"version": version})

	if err := config.ValidateForWorkers(cfg); err != nil {
		return err
	}

	tracing, err := observability.NewTracing(cfg.App.Name, version, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel metrics disabled", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown(context.Background())

	eng, err := buildEngines(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("engine init failed: %w", err)
	}

	reg, err := registry.Default()
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("activity registry: %w", err)
	}

	// --- Storage ---
	pg, st, err := connectStore(ctx, cfg, log, 15)
	if err != nil {
		return fmt.Errorf("postgres failed after retries: %w", err)
	}
	if pg != nil {
		defer pg.Close()
		log.Info("PostgreSQL connected successfully", nil)
	}

	rdb, err := connectRedis(ctx, cfg, log, 10)
	if err != nil {
		return fmt.Errorf("redis failed after retries: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("Redis connected successfully", nil)
	}

	es, err := connectElasticsearch(ctx, cfg, log, 15)
	if err != nil {
		return fmt.Errorf("elasticsearch failed after retries: %w", err)
	}
	if es != nil {
		if err := es.EnsureIndex(ctx, cfg.Research.ArchiveIndex, researchchapter.ArchiveMapping); err != nil {
			return err
		}
		log.Info("Elasticsearch connected successfully", map[string]interface{}{"index": cfg.Research.ArchiveIndex})
	}

	// --- Zeebe ---
	var zc *camunda.Client
	err = camunda.Do(ctx, &camunda.RetryConfig{MaxRetries: 9, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second},
		"connect", func(context.Context) error {
			var err error
			zc, err = camunda.NewClient(camunda.ConfigFrom(cfg.Camunda))
			return err
		})
	if err != nil {
		return fmt.Errorf("zeebe client failed after retries: %w", err)
	}
	defer zc.Close()
	log.Info("Zeebe client connected successfully", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- Workers ---
	var workers []*camunda.Worker

	if config.IsWorkerEnabled(cfg, answerquestion.TaskType) {
		wc := config.GetWorkerConfig(cfg, answerquestion.TaskType)
		var answerStore answerquestion.Store
		if st != nil {
			answerStore = st
		}
		handler := answerquestion.NewHandler(answerquestion.LoadConfig(wc), eng.verification, answerStore, log)

		w, err := startWorker(zc, reg, answerquestion.TaskType, wc, handler, obs)
		if err != nil {
			return err
		}
		workers = append(workers, w)
	}

	if config.IsWorkerEnabled(cfg, researchchapter.TaskType) {
		wc := config.GetWorkerConfig(cfg, researchchapter.TaskType)
		rcfg := researchchapter.LoadConfig(wc, cfg.Research)

		var cache *researchchapter.Cache
		if rdb != nil {
			cache = researchchapter.NewCache(rdb.Client, rcfg.CachePrefix, rcfg.CacheTTL)
		}
		var archive *researchchapter.Archive
		if es != nil {
			archive = researchchapter.NewArchive(es.Client, rcfg.ArchiveIndex)
		}
		handler := researchchapter.NewHandler(rcfg, eng.research, cache, archive, log)

		w, err := startWorker(zc, reg, researchchapter.TaskType, wc, handler, obs)
		if err != nil {
			return err
		}
		workers = append(workers, w)
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	checks := []readinessCheck{{name: "zeebe", probe: zc.HealthCheck}}
	if pg != nil {
		checks = append(checks, readinessCheck{name: "postgres", probe: pg.Ping})
	}
	if rdb != nil {
		checks = append(checks, readinessCheck{name: "redis", probe: rdb.Ping})
	}
	if es != nil {
		checks = append(checks, readinessCheck{name: "elasticsearch", probe: es.Ping})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newServerMux(availability(cfg), eng.llm.Providers(), checks),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Precision engine stopped gracefully", nil)
	return nil
}

func startWorker(zc *camunda.Client, reg *registry.ActivityRegistry, taskType string, wc config.WorkerConfig, handler camunda.JobHandler, obs *observability.Observability) (*camunda.Worker, error) {
	opts := camunda.WorkerOptions{
		TaskType:      taskType,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}

	if activity, ok := reg.Find(taskType); ok {
		schema, err := activity.CompileInputSchema()
		if err != nil {
			return nil, err
		}
		opts.InputSchema = schema
		if opts.Timeout <= 0 {
			if opts.Timeout, err = activity.TimeoutDuration(); err != nil {
				return nil, err
			}
		}
	}

	return camunda.NewWorker(zc.Zeebe(), opts, handler, obs, log), nil
}
