package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precision-engine/internal/pipeline/research"
)

func get(t *testing.T, mux *http.ServeMux, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServer_Health(t *testing.T) {
	mux := newServerMux(research.Availability(true, true), nil, nil)

	rec, body := get(t, mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_ReadyReportsFailingDependency(t *testing.T) {
	checks := []readinessCheck{
		{name: "zeebe", probe: func(context.Context) error { return nil }},
		{name: "postgres", probe: func(context.Context) error { return errors.New("connection refused") }},
	}
	mux := newServerMux(research.Availability(true, true), nil, checks)

	rec, body := get(t, mux, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "ok", deps["zeebe"])
	assert.Equal(t, "connection refused", deps["postgres"])
}

func TestServer_ReadyAllHealthy(t *testing.T) {
	checks := []readinessCheck{{name: "zeebe", probe: func(context.Context) error { return nil }}}
	rec, body := get(t, newServerMux(research.Availability(true, false), nil, checks), "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestServer_Status(t *testing.T) {
	mux := newServerMux(research.Availability(true, false), []string{"gemini", "groq"}, nil)

	rec, body := get(t, mux, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operational", body["status"])
	assert.Equal(t, false, body["web_search_available"])
	assert.Equal(t, "Limited functionality - using AI knowledge only", body["message"])
	assert.Equal(t, []interface{}{"gemini", "groq"}, body["providers"])
}

func TestServer_Metrics(t *testing.T) {
	rec, _ := get(t, newServerMux(research.Availability(false, false), nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
