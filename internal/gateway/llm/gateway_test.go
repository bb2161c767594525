package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precision-engine/internal/common/config"
	"precision-engine/internal/common/logger"
)

type fakeProvider struct {
	name string
	fn   func(ctx context.Context, req Request) ([]byte, error)

	mu    sync.Mutex
	calls []Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func returns(payload string) func(context.Context, Request) ([]byte, error) {
	return func(context.Context, Request) ([]byte, error) { return []byte(payload), nil }
}

func fails(err error) func(context.Context, Request) ([]byte, error) {
	return func(context.Context, Request) ([]byte, error) { return nil, err }
}

func newTestGateway(t *testing.T, timeout time.Duration, providers ...Provider) *Gateway {
	t.Helper()
	g, err := NewGateway(providers, Options{Timeout: timeout}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return g
}

// ==========================
// Fallback order
// ==========================

func TestGateway_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: returns(`{"answer":"Depreciation is..."}`)}
	fallback := &fakeProvider{name: "groq", fn: returns(`{"answer":"unused"}`)}

	res, err := newTestGateway(t, time.Second, primary, fallback).
		GenerateStructured(context.Background(), Request{Prompt: "Explain depreciation"})

	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.JSONEq(t, `{"answer":"Depreciation is..."}`, string(res.Payload))
	assert.Equal(t, 0, fallback.callCount())
}

func TestGateway_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: fails(&ProviderError{Provider: "gemini", Kind: FailureHTTP, StatusCode: 503, Err: errors.New("unavailable")})}
	fallback := &fakeProvider{name: "groq", fn: returns(`{"answer":"from groq"}`)}

	res, err := newTestGateway(t, time.Second, primary, fallback).
		GenerateStructured(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestGateway_MalformedJSONFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"prose", "Sure! Here is your answer."},
		{"array", `["a","b"]`},
		{"truncated", `{"answer": "cut off`},
		{"empty", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeProvider{name: "gemini", fn: returns(tt.payload)}
			fallback := &fakeProvider{name: "groq", fn: returns(`{"ok":true}`)}

			res, err := newTestGateway(t, time.Second, primary, fallback).
				GenerateStructured(context.Background(), Request{Prompt: "p"})

			require.NoError(t, err)
			assert.Equal(t, "groq", res.Provider)
		})
	}
}

func TestGateway_AcceptsFencedJSON(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: returns("```json\n{\"a\":1}\n```")}

	res, err := newTestGateway(t, time.Second, primary).GenerateStructured(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(res.Payload))
}

func TestGateway_AllProvidersExhausted(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: fails(errors.New("quota exceeded"))}
	fallback := &fakeProvider{name: "groq", fn: fails(&ProviderError{Provider: "groq", Kind: FailureEmpty, Err: errors.New("no choices returned")})}

	res, err := newTestGateway(t, time.Second, primary, fallback).
		GenerateStructured(context.Background(), Request{Prompt: "p"})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Failures, 2)
	assert.Equal(t, "gemini", exhausted.Failures[0].Provider)
	assert.Equal(t, FailureHTTP, exhausted.Failures[0].Kind)
	assert.Equal(t, "groq", exhausted.Failures[1].Provider)
	assert.Equal(t, FailureEmpty, exhausted.Failures[1].Kind)
	assert.Equal(t, "all LLM providers failed: gemini: quota exceeded; groq: no choices returned", err.Error())
}

// ==========================
// Request shaping
// ==========================

func TestGateway_AppendsJSONInstructionAndDefaults(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: returns(`{}`)}

	_, err := newTestGateway(t, time.Second, primary).GenerateStructured(context.Background(), Request{
		Prompt:             "Subject: Economics\n\nQuestion: What is GDP?",
		SystemInstructions: "You are a CBSE examiner.",
	})

	require.NoError(t, err)
	require.Len(t, primary.calls, 1)
	got := primary.calls[0]
	assert.Equal(t, "Subject: Economics\n\nQuestion: What is GDP?\n\nRespond ONLY with valid JSON.", got.Prompt)
	assert.Equal(t, "You are a CBSE examiner.", got.SystemInstructions)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, DefaultTemperature, *got.Temperature)
	assert.Equal(t, DefaultMaxOutputTokens, got.MaxOutputTokens)
}

func TestGateway_ZeroTemperatureIsKept(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: returns(`{}`)}

	_, err := newTestGateway(t, time.Second, primary).GenerateStructured(context.Background(), Request{
		Prompt:      "Define GDP.",
		Temperature: Temperature(0),
	})

	require.NoError(t, err)
	require.Len(t, primary.calls, 1)
	require.NotNil(t, primary.calls[0].Temperature)
	assert.Equal(t, 0.0, *primary.calls[0].Temperature)
}

func TestGateway_TimeoutIsPerAttempt(t *testing.T) {
	slow := &fakeProvider{name: "gemini", fn: func(ctx context.Context, _ Request) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := &fakeProvider{name: "groq", fn: func(ctx context.Context, _ Request) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte(`{"ok":true}`), nil
	}}

	start := time.Now()
	res, err := newTestGateway(t, 50*time.Millisecond, slow, fast).
		GenerateStructured(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "groq", res.Provider)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGateway_TimeoutClassified(t *testing.T) {
	slow := &fakeProvider{name: "gemini", fn: func(ctx context.Context, _ Request) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	_, err := newTestGateway(t, 20*time.Millisecond, slow).GenerateStructured(context.Background(), Request{Prompt: "p"})

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, FailureTimeout, exhausted.Failures[0].Kind)
}

func TestGateway_CancelledContextSkipsProviders(t *testing.T) {
	primary := &fakeProvider{name: "gemini", fn: returns(`{}`)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGateway(t, time.Second, primary).GenerateStructured(ctx, Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.Equal(t, 0, primary.callCount())
}

// ==========================
// Construction
// ==========================

func TestNewGateway_RequiresProvider(t *testing.T) {
	_, err := NewGateway(nil, Options{}, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestNewFromConfig_NoKeys(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.ProvidersConfig{Timeout: 1000}, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestNewFromConfig_OrderIsGeminiThenGroq(t *testing.T) {
	g, err := NewFromConfig(context.Background(), config.ProvidersConfig{
		Gemini:  config.ProviderConfig{APIKey: "g", BaseURL: "http://127.0.0.1:1/"},
		Groq:    config.ProviderConfig{APIKey: "q"},
		Timeout: 1000,
	}, logger.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "groq"}, g.Providers())
}

func TestNewFromConfig_GroqOnly(t *testing.T) {
	g, err := NewFromConfig(context.Background(), config.ProvidersConfig{
		Groq:    config.ProviderConfig{APIKey: "q"},
		Timeout: 1000,
	}, logger.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, []string{"groq"}, g.Providers())
}
