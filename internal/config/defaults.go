package config

import "time"

const (
	DefaultConfigFile   = "rag.yaml"
	DefaultManifestName = ".ingest_manifest.json"
	DefaultGeminiURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultOllamaURL    = "http://localhost:11434"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:    "data",
		Include:      []string{"**/*.txt", "**/*.md"},
		PollInterval: 30 * time.Second,
		Chunk: ChunkConfig{
			Size:        180,
			Overlap:     40,
			Unit:        "word",
			Granularity: "chunk",
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      "text-embedding-004",
			BaseURL:    DefaultGeminiURL,
			Dimension:  768,
			MaxRetries: 2,
		},
		LLM: LLMConfig{
			Provider:     ProviderOpenAI,
			Model:        "gemini-2.5-flash",
			BaseURL:      DefaultGeminiURL,
			MaxRetries:   2,
			Temperature:  0.1,
			MaxSentences: 6,
		},
		VectorStore: VectorStoreConfig{
			Backend: BackendChromem,
			Chromem: ChromemConfig{
				Path:       "./chromemdb",
				Collection: "documents",
			},
			PGVector: PGVectorConfig{
				Table:  "documents",
				Driver: "pgdriver",
			},
		},
		RAG: RAGConfig{
			TopK: 3,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
