package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"doc-rag/internal/config"
	"doc-rag/internal/helper"
)

// ErrDimensionMismatch matches any DimensionMismatchError.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DimensionMismatchError means the provider returned vectors of a different
// length than the index was configured for. It is never retried.
type DimensionMismatchError struct {
	Got      int
	Expected int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: got %d, expected %d (check embedding.model and embedding.dimension)", e.Got, e.Expected)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Embedder turns text into fixed-length vectors and guards the dimension.
type Embedder struct {
	client     embeddings.Embedder
	dimension  int
	maxRetries int
	limiter    *rate.Limiter
}

type Option func(*Embedder)

// WithMaxRetries sets how many times a failed provider call is retried.
func WithMaxRetries(n int) Option {
	return func(e *Embedder) { e.maxRetries = n }
}

// WithRequestsPerMinute throttles provider calls. Zero disables throttling.
func WithRequestsPerMinute(rpm int) Option {
	return func(e *Embedder) {
		if rpm > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		}
	}
}

func New(client embeddings.Embedder, dimension int, opts ...Option) *Embedder {
	e := &Embedder{client: client, dimension: dimension, maxRetries: 2}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimension is the configured vector length D.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := helper.Retry(ctx, e.maxRetries, func() ([]float32, error) {
		if err := e.wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return e.client.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if err := e.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns one vector per text, in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := helper.Retry(ctx, e.maxRetries, func() ([][]float32, error) {
		if err := e.wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return e.client.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for _, v := range vecs {
		if err := e.check(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *Embedder) check(vec []float32) error {
	if len(vec) != e.dimension {
		return &DimensionMismatchError{Got: len(vec), Expected: e.dimension}
	}
	return nil
}

func (e *Embedder) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// NewOpenAIClient builds an embeddings client for an OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL, embeddingModel string) (*embeddings.EmbedderImpl, error) {
	log.Debug().Str("base_url", baseURL).Str("embedding_model", embeddingModel).Msg("Creating OpenAI-compatible embedder")

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing embedding client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// new ollama embedder
func NewOllamaClient(baseURL, embeddingModel string) (*embeddings.EmbedderImpl, error) {
	log.Debug().Str("base_url", baseURL).Str("embedding_model", embeddingModel).Msg("Creating Ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// NewFromConfig builds the configured provider client and wraps it.
func NewFromConfig(cfg config.EmbeddingConfig, apiKey string) (*Embedder, error) {
	var (
		client embeddings.Embedder
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" || baseURL == config.DefaultGeminiURL {
			baseURL = config.DefaultOllamaURL
		}
		client, err = NewOllamaClient(baseURL, cfg.Model)
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(apiKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return New(client, cfg.Dimension,
		WithMaxRetries(cfg.MaxRetries),
		WithRequestsPerMinute(cfg.RequestsPerMinute),
	), nil
}
