package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"cycled/internal/logging"
)

// GeminiClient routes invocations to the Gemini API instead of the local
// runtime. Useful as a fallback when the host cannot fit any usable tier;
// the model argument is ignored in favor of the configured remote model.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a remote client for the given API key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Invoke sends one generation request to the remote model.
func (c *GeminiClient) Invoke(ctx context.Context, _, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	logging.L(logging.CategoryInference).Debugw("invoking remote model",
		"model", c.model, "prompt_len", len(userPrompt))

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}

	resp := &Response{Text: text, Model: c.model}
	if result.UsageMetadata != nil {
		resp.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return resp, nil
}
