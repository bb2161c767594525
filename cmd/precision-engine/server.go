// cmd/precision-engine/server.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"precision-engine/internal/pipeline/research"
)

// readinessCheck is one dependency probed by /ready.
type readinessCheck struct {
	name  string
	probe func(ctx context.Context) error
}

func newServerMux(status research.Status, providers []string, checks []readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		code := http.StatusOK
		deps := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.probe(ctx); err != nil {
				deps[c.name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			deps[c.name] = "ok"
		}

		state := "ready"
		if code != http.StatusOK {
			state = "not_ready"
		}
		writeJSON(w, code, map[string]interface{}{
			"status":       state,
			"dependencies": deps,
			"time":         time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":               status.Status,
			"llm_available":        status.LLMAvailable,
			"web_search_available": status.WebSearchAvailable,
			"message":              status.Message,
			"providers":            providers,
			"version":              version,
		})
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
