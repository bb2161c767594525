package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: precision-engine
camunda:
  broker_address: localhost:26500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
	assert.Equal(t, time.Second, GetDuration(cfg.Pipeline.RetryDelay))
	assert.Equal(t, 120*time.Second, GetDuration(cfg.Providers.Timeout))
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Search.Timeout))
	assert.Equal(t, "https://serpapi.com/search", cfg.Search.BaseURL)
	assert.Equal(t, "gemini-1.5-flash", cfg.Providers.Gemini.Model)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.Providers.Groq.Model)
	assert.Equal(t, 15, cfg.Search.MaxSources)
	assert.Equal(t, 20, cfg.Search.MaxQuestions)
	assert.Equal(t, 10, cfg.Research.MaxSources)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.NoError(t, ValidateForWorkers(cfg))
}

func TestLoadFromFile_ZeroRetriesIsKept(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  max_retries: 0
  retry_delay: 0
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 0, cfg.Pipeline.RetryDelay)
}

func TestLoadFromFile_EnvOverridesAndExpansion(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("PE_TEST_SERP_KEY", "serp-key")

	path := writeConfig(t, `
search:
  api_key: ${PE_TEST_SERP_KEY}
providers:
  groq:
    api_key: groq-from-file
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.Providers.Gemini.APIKey)
	assert.Equal(t, "groq-from-file", cfg.Providers.Groq.APIKey)
	assert.Equal(t, "serp-key", cfg.Search.APIKey)
	assert.True(t, cfg.Providers.Gemini.Enabled())
}

func TestLoadFromFile_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative retries", "pipeline:\n  max_retries: -1\n"},
		{"source cap above 15", "research:\n  max_sources: 40\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestValidateForWorkers_RequiresBroker(t *testing.T) {
	assert.Error(t, ValidateForWorkers(&Config{}))
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"answer-question": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "answer-question"))
	assert.True(t, IsWorkerEnabled(cfg, "research-chapter"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "answer-question").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "research-chapter").MaxJobsActive)
}
