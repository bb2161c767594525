package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"precision-engine/internal/common/config"
	commonhttp "precision-engine/internal/common/http"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/common/metrics"
)

// Options tune the gateway independently of the providers.
type Options struct {
	// Timeout bounds each provider attempt separately.
	Timeout time.Duration
}

// Gateway tries providers in order and returns the first valid JSON object.
type Gateway struct {
	providers []Provider
	opts      Options
	logger    logger.Logger
}

func NewGateway(providers []Provider, opts Options, log logger.Logger) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Gateway{
		providers: providers,
		opts:      opts,
		logger:    log.With(map[string]interface{}{"component": "llm-gateway"}),
	}, nil
}

// NewFromConfig builds the Gemini then Groq chain from whichever keys are set.
func NewFromConfig(ctx context.Context, cfg config.ProvidersConfig, log logger.Logger) (*Gateway, error) {
	timeout := config.GetDuration(cfg.Timeout)
	client := commonhttp.NewClient(timeout + 5*time.Second)

	var providers []Provider
	if cfg.Gemini.Enabled() {
		gemini, err := NewGeminiProvider(ctx, cfg.Gemini, client.HTTPClient())
		if err != nil {
			return nil, err
		}
		providers = append(providers, gemini)
	}
	if cfg.Groq.Enabled() {
		providers = append(providers, NewGroqProvider(cfg.Groq, client))
	}

	return NewGateway(providers, Options{Timeout: timeout}, log)
}

// Providers returns the configured provider names in fallback order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

// GenerateStructured returns the first provider output that parses as a JSON object.
// Failed attempts are logged and the next provider is tried; when all fail an
// *ExhaustedError listing every failure is returned.
func (g *Gateway) GenerateStructured(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults()
	req.Prompt += jsonInstruction

	exhausted := &ExhaustedError{}
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			exhausted.Failures = append(exhausted.Failures, &ProviderError{Provider: p.Name(), Kind: FailureTimeout, Err: err})
			continue
		}

		payload, err := g.attempt(ctx, p, req)
		if err == nil {
			g.logger.Debug("provider succeeded", map[string]interface{}{"provider": p.Name()})
			return &Result{Provider: p.Name(), Payload: payload}, nil
		}

		pErr := asProviderError(p.Name(), err)
		metrics.ProviderRequests.WithLabelValues(p.Name(), string(pErr.Kind)).Inc()
		g.logger.Warn("provider failed, trying next", map[string]interface{}{
			"provider": p.Name(),
			"kind":     string(pErr.Kind),
			"error":    pErr.Err.Error(),
		})
		exhausted.Failures = append(exhausted.Failures, pErr)
	}

	return nil, exhausted
}

func (g *Gateway) attempt(ctx context.Context, p Provider, req Request) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Generate(attemptCtx, req)
	metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ProviderError{Provider: p.Name(), Kind: FailureTimeout, Err: err}
		}
		return nil, err
	}

	payload, err := parseObject(raw)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Kind: FailureMalformedJSON, Err: err}
	}
	metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
	return payload, nil
}

// parseObject accepts a JSON object, tolerating a markdown code fence around it.
func parseObject(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("```")) {
		trimmed = bytes.TrimPrefix(trimmed, []byte("```json"))
		trimmed = bytes.TrimPrefix(trimmed, []byte("```"))
		trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
		trimmed = bytes.TrimSpace(trimmed)
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

func asProviderError(name string, err error) *ProviderError {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		if pErr.Provider == "" {
			pErr.Provider = name
		}
		return pErr
	}
	return &ProviderError{Provider: name, Kind: FailureHTTP, Err: err}
}
