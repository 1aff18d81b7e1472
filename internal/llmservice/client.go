package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"doc-rag/internal/config"
	"doc-rag/internal/helper"
)

var ErrEmptyResponse = errors.New("language model returned no choices")

// Client calls a chat model, retrying failed calls.
type Client struct {
	model      llms.Model
	maxRetries int
}

func NewClient(model llms.Model, maxRetries int) *Client {
	return &Client{model: model, maxRetries: maxRetries}
}

// NewModel builds the configured chat model.
func NewModel(cfg config.LLMConfig, apiKey string) (llms.Model, error) {
	log.Debug().Str("provider", string(cfg.Provider)).Str("model", cfg.Model).Msg("Creating language model")

	switch cfg.Provider {
	case config.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" || baseURL == config.DefaultGeminiURL {
			baseURL = config.DefaultOllamaURL
		}
		return ollama.New(
			ollama.WithServerURL(baseURL),
			ollama.WithModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// call llm
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	return helper.Retry(ctx, c.maxRetries, func() (string, error) {
		res, err := c.model.GenerateContent(ctx, messages, options...)
		if err != nil {
			return "", err
		}
		if res == nil || len(res.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return res.Choices[0].Content, nil
	})
}
