// cmd/precision-engine/deps.go
package main

import (
	"context"
	"fmt"
	"time"

	"precision-engine/internal/common/config"
	"precision-engine/internal/common/database"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/gateway/llm"
	"precision-engine/internal/gateway/websearch"
	"precision-engine/internal/pipeline/research"
	"precision-engine/internal/pipeline/verification"
	"precision-engine/internal/store"
)

// engines holds the gateways and pipelines; they are built once and shared.
type engines struct {
	llm          *llm.Gateway
	search       *websearch.Gateway
	verification *verification.Pipeline
	research     *research.Engine
}

// buildEngines fails with llm.ErrNoProviders when no provider key is configured.
func buildEngines(ctx context.Context, cfg *config.Config, log logger.Logger) (*engines, error) {
	gateway, err := llm.NewFromConfig(ctx, cfg.Providers, log)
	if err != nil {
		return nil, err
	}
	search := websearch.NewFromConfig(cfg.Search, log)

	return &engines{
		llm:          gateway,
		search:       search,
		verification: verification.NewFromConfig(gateway, cfg.Pipeline, log),
		research:     research.NewFromConfig(gateway, search, cfg.Research, log),
	}, nil
}

// availability reports what the configured credentials allow, without building
// any provider client.
func availability(cfg *config.Config) research.Status {
	hasLLM := cfg.Providers.Gemini.Enabled() || cfg.Providers.Groq.Enabled()
	return research.Availability(hasLLM, cfg.Search.APIKey != "")
}

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// connectStore opens PostgreSQL and migrates the schema. It returns nil when no
// database is configured.
func connectStore(ctx context.Context, cfg *config.Config, log logger.Logger, attempts int) (*database.PostgresClient, *store.Store, error) {
	if !cfg.Database.Postgres.Enabled() {
		return nil, nil, nil
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		return nil
	}, attempts, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, nil, err
	}

	st := store.New(pg.DB, log)
	if err := st.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, st, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger, attempts int) (*database.RedisClient, error) {
	if !cfg.Database.Redis.Enabled() {
		return nil, nil
	}

	rdb := database.NewRedis(cfg.Database.Redis)
	err := retryWithBackoff(ctx, func() error {
		return rdb.Ping(ctx)
	}, attempts, 2*time.Second, log, "Redis connection")
	if err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func connectElasticsearch(ctx context.Context, cfg *config.Config, log logger.Logger, attempts int) (*database.ElasticsearchClient, error) {
	if !cfg.Database.Elasticsearch.Enabled() {
		return nil, nil
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	err = retryWithBackoff(ctx, func() error {
		return es.Ping(ctx)
	}, attempts, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	return es, nil
}
