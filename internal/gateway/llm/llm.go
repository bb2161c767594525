// Package llm is the provider gateway: it turns a prompt into a structured JSON
// payload by trying an ordered chain of language-model providers until one succeeds.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProviderFailed        = errors.New("PROVIDER_ERROR")
	ErrAllProvidersExhausted = errors.New("ALL_PROVIDERS_EXHAUSTED")
	ErrNoProviders           = errors.New("CONFIGURATION_ERROR: no LLM provider is configured")
)

const (
	DefaultTemperature     = 0.3
	DefaultMaxOutputTokens = 2000

	jsonInstruction = "\n\nRespond ONLY with valid JSON."
)

// Request is one structured generation call. A nil Temperature means
// DefaultTemperature; zero is a valid setting.
type Request struct {
	Prompt             string
	SystemInstructions string
	Temperature        *float64
	MaxOutputTokens    int
}

// Temperature returns a pointer for Request.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

func (r Request) temperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

func (r Request) withDefaults() Request {
	if r.Temperature == nil {
		r.Temperature = Temperature(DefaultTemperature)
	}
	if r.MaxOutputTokens == 0 {
		r.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return r
}

// Result is the winning provider's JSON object.
type Result struct {
	Provider string
	Payload  json.RawMessage
}

// Provider is one backend in the fallback chain. Generate returns the raw text the
// model produced; the gateway checks that it is a JSON object.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// FailureKind classifies a provider failure.
type FailureKind string

const (
	FailureHTTP          FailureKind = "http"
	FailureEmpty         FailureKind = "empty"
	FailureMalformedJSON FailureKind = "malformed-json"
	FailureTimeout       FailureKind = "timeout"
)

// ProviderError is a single provider's failure.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailed
}

// ExhaustedError carries every provider's failure, in chain order.
type ExhaustedError struct {
	Failures []*ProviderError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "all LLM providers failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}
