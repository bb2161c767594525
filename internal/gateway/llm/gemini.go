package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"precision-engine/internal/common/config"
)

const geminiName = "gemini"

// GeminiProvider is the primary provider, backed by the Gemini API SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrNoProviders)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string {
	return geminiName
}

func (g *GeminiProvider) Generate(ctx context.Context, req Request) ([]byte, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.temperature())),
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		ResponseMIMEType: "application/json",
	}
	if req.SystemInstructions != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstructions, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, &ProviderError{Provider: geminiName, Kind: FailureHTTP, Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		reason := "no candidates returned, content may be blocked"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, &ProviderError{Provider: geminiName, Kind: FailureEmpty, Err: fmt.Errorf("%s", reason)}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, &ProviderError{Provider: geminiName, Kind: FailureEmpty, Err: fmt.Errorf("candidate has no text")}
	}
	return []byte(sb.String()), nil
}
