package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"cycled/internal/logging"
)

// LocalClient talks to an Ollama-compatible runtime over HTTP.
type LocalClient struct {
	mu         sync.Mutex
	baseURL    string
	httpClient *http.Client
}

// LocalConfig holds configuration for the local runtime client.
type LocalConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultLocalConfig returns sensible defaults for a runtime on localhost.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		BaseURL: "http://127.0.0.1:11434",
		Timeout: 5 * time.Minute,
	}
}

// NewLocalClient creates a client for the local inference runtime.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLocalConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLocalConfig().Timeout
	}
	return &LocalClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Reconfigure swaps the runtime endpoint and timeout. Requests already in
// flight finish against the old settings; the next Invoke uses the new
// ones.
func (c *LocalClient) Reconfigure(cfg LocalConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLocalConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLocalConfig().Timeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = cfg.BaseURL
	if c.httpClient.Timeout != cfg.Timeout {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
}

func (c *LocalClient) endpoint() (string, *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL, c.httpClient
}

// generateRequest mirrors the runtime's /api/generate body.
type generateRequest struct {
	Model     string                 `json:"model"`
	Prompt    string                 `json:"prompt"`
	System    string                 `json:"system,omitempty"`
	Stream    bool                   `json:"stream"`
	KeepAlive string                 `json:"keep_alive,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// generateResponse mirrors the runtime's /api/generate reply.
type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	LoadDuration    int64  `json:"load_duration"` // nanoseconds
	Error           string `json:"error,omitempty"`
}

// Invoke sends one non-streaming generate call to the runtime.
func (c *LocalClient) Invoke(ctx context.Context, model, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	reqBody := generateRequest{
		Model:  model,
		Prompt: userPrompt,
		System: systemPrompt,
		Stream: false,
	}
	if opts.KeepAlive > 0 {
		reqBody.KeepAlive = opts.KeepAlive.String()
	}
	options := make(map[string]interface{})
	if opts.ContextWindow > 0 {
		options["num_ctx"] = opts.ContextWindow
	}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if len(options) > 0 {
		reqBody.Options = options
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	start := time.Now()
	logging.L(logging.CategoryInference).Debugw("invoking model",
		"model", model, "prompt_len", len(userPrompt), "num_ctx", opts.ContextWindow)

	baseURL, httpClient := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrNetwork, resp.StatusCode, truncate(string(body), 200))
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if gen.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, gen.Error)
	}
	if !gen.Done {
		return nil, fmt.Errorf("%w: incomplete generation", ErrMalformedResponse)
	}

	logging.L(logging.CategoryInference).Debugw("model responded",
		"model", model, "tokens", gen.EvalCount+gen.PromptEvalCount,
		"duration", time.Since(start), "load", time.Duration(gen.LoadDuration))

	return &Response{
		Text:         gen.Response,
		Model:        gen.Model,
		TokensUsed:   gen.EvalCount + gen.PromptEvalCount,
		LoadDuration: time.Duration(gen.LoadDuration),
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
