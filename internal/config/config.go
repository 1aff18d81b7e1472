package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	EnvPrefix       = "RAG_"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

var (
	ErrMissingCredential = errors.New("missing API key: set " + EnvGoogleAPIKey + " or " + EnvGeminiAPIKey)
	ErrMissingSourceDir  = errors.New("source directory does not exist")
)

// LoadDotEnv loads a .env file from the working directory, if present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (RAG_*). Nested keys use a double
// underscore: RAG_EMBEDDING__MODEL -> embedding.model.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validBackends = map[BackendType]bool{
	BackendChromem:  true,
	BackendPGVector: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, chunk.size), got %d", c.Chunk.Overlap)
	}
	switch c.Chunk.Unit {
	case "word", "rune":
	default:
		return fmt.Errorf("invalid chunk.unit %q: must be word or rune", c.Chunk.Unit)
	}
	switch c.Chunk.Granularity {
	case "chunk", "document":
	default:
		return fmt.Errorf("invalid chunk.granularity %q: must be chunk or document", c.Chunk.Granularity)
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of openai, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	if c.Embedding.MaxRetries < 0 || c.LLM.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of openai, ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	if !validBackends[c.VectorStore.Backend] {
		return fmt.Errorf("invalid vector_store.backend %q: must be one of chromem, pgvector", c.VectorStore.Backend)
	}
	if c.VectorStore.Backend == BackendPGVector && c.VectorStore.PGVector.DSN == "" {
		return fmt.Errorf("vector_store.pgvector.dsn is required for the pgvector backend")
	}

	if c.RAG.TopK < 0 || c.RAG.MaxContextChars < 0 {
		return fmt.Errorf("rag.top_k and rag.max_context_chars must be non-negative")
	}
	return nil
}

// ManifestFile returns the manifest location, defaulting to a hidden file
// inside the source directory.
func (c *Config) ManifestFile() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.SourceDir, DefaultManifestName)
}

// NeedsAPIKey reports whether any configured provider talks to a hosted
// OpenAI-compatible endpoint.
func (c *Config) NeedsAPIKey() bool {
	return c.Embedding.Provider == ProviderOpenAI || c.LLM.Provider == ProviderOpenAI
}

// ResolveAPIKey returns the hosted provider credential. GOOGLE_API_KEY takes
// precedence over GEMINI_API_KEY.
func ResolveAPIKey() (string, error) {
	for _, name := range []string{EnvGoogleAPIKey, EnvGeminiAPIKey} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", ErrMissingCredential
}

// CheckSourceDir fails with ErrMissingSourceDir when the source directory is absent.
func (c *Config) CheckSourceDir() error {
	info, err := os.Stat(c.SourceDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMissingSourceDir, c.SourceDir)
	}
	return nil
}
