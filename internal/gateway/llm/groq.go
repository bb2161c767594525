package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"precision-engine/internal/common/config"
	commonhttp "precision-engine/internal/common/http"
)

const groqName = "groq"

// GroqProvider is the fallback provider, spoken to over its OpenAI-compatible API.
type GroqProvider struct {
	client  *commonhttp.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGroqProvider(cfg config.ProviderConfig, client *commonhttp.Client) *GroqProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	return &GroqProvider{client: client, baseURL: baseURL, apiKey: cfg.APIKey, model: model}
}

func (g *GroqProvider) Name() string {
	return groqName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *GroqProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemInstructions != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstructions})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:          g.model,
		Messages:       messages,
		Temperature:    req.temperature(),
		MaxTokens:      req.MaxOutputTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var resp chatResponse
	err := g.client.PostJSON(ctx, g.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + g.apiKey}, body, &resp)
	if err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			return nil, &ProviderError{
				Provider:   groqName,
				Kind:       FailureHTTP,
				StatusCode: statusErr.StatusCode,
				Err:        fmt.Errorf("%s", groqErrorMessage(statusErr.Body)),
			}
		}
		return nil, &ProviderError{Provider: groqName, Kind: FailureHTTP, Err: err}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &ProviderError{Provider: groqName, Kind: FailureEmpty, Err: fmt.Errorf("no choices returned")}
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

func groqErrorMessage(body string) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return body
}
