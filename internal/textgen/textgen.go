// Package textgen provides optional LLM-backed cleanup of noisy OCR text.
// The pipeline works without it; a nil Generator disables the feature.
package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIConfig holds configuration for the OpenAI text client.
type OpenAIConfig struct {
	APIKey     string
	Model      string  // "gpt-4o-mini" (default)
	BaseURL    string  // Optional, for OpenAI-compatible endpoints
	RateLimit  float64 // Requests per second
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIClient implements Generator using the official OpenAI SDK.
type OpenAIClient struct {
	model   string
	client  openai.Client
	limiter *rate.Limiter
	retries int
	logger  *slog.Logger
}

// NewOpenAIClient creates a new OpenAI text generation client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:   cfg.Model,
		client:  openai.NewClient(opts...),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		retries: cfg.MaxRetries,
		logger:  logger,
	}
}

// Generate implements Generator with rate limiting and retries.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter interrupted: %w", err)
	}

	var content string
	err := retry.Do(
		func() error {
			start := time.Now()
			resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model: openai.ChatModel(c.model),
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(systemPrompt),
					openai.UserMessage(userPrompt),
				},
				Temperature: openai.Float(0.2),
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("empty completion response")
			}
			content = resp.Choices[0].Message.Content
			c.logger.Debug("text generation complete",
				"model", c.model,
				"latency_ms", time.Since(start).Milliseconds(),
				"tokens", resp.Usage.TotalTokens)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries)),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

var _ Generator = (*OpenAIClient)(nil)
