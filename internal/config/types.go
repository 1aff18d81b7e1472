package config

import "time"

// ProviderType identifies an embedding or language-model provider.
type ProviderType string

const (
	// ProviderOpenAI is any OpenAI-compatible HTTP endpoint, Gemini's by default.
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// BackendType identifies a vector store implementation.
type BackendType string

const (
	BackendChromem  BackendType = "chromem"
	BackendPGVector BackendType = "pgvector"
)

// Config is the top-level configuration, corresponding to rag.yaml.
type Config struct {
	SourceDir    string            `yaml:"source_dir" koanf:"source_dir"`
	Include      []string          `yaml:"include" koanf:"include"`
	ManifestPath string            `yaml:"manifest_path" koanf:"manifest_path"`
	PollInterval time.Duration     `yaml:"poll_interval" koanf:"poll_interval"`
	Chunk        ChunkConfig       `yaml:"chunk" koanf:"chunk"`
	Embedding    EmbeddingConfig   `yaml:"embedding" koanf:"embedding"`
	LLM          LLMConfig         `yaml:"llm" koanf:"llm"`
	VectorStore  VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	RAG          RAGConfig         `yaml:"rag" koanf:"rag"`
	Server       ServerConfig      `yaml:"server" koanf:"server"`
	Log          LogConfig         `yaml:"log" koanf:"log"`
}

type ChunkConfig struct {
	Size    int    `yaml:"size" koanf:"size"`
	Overlap int    `yaml:"overlap" koanf:"overlap"`
	Unit    string `yaml:"unit" koanf:"unit"`
	// Granularity is "chunk" (many rows per document) or "document" (one row).
	Granularity string `yaml:"granularity" koanf:"granularity"`
}

type EmbeddingConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url" koanf:"base_url"`
	Dimension         int          `yaml:"dimension" koanf:"dimension"`
	MaxRetries        int          `yaml:"max_retries" koanf:"max_retries"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

type LLMConfig struct {
	Provider     ProviderType `yaml:"provider" koanf:"provider"`
	Model        string       `yaml:"model" koanf:"model"`
	BaseURL      string       `yaml:"base_url" koanf:"base_url"`
	MaxRetries   int          `yaml:"max_retries" koanf:"max_retries"`
	Temperature  float64      `yaml:"temperature" koanf:"temperature"`
	MaxSentences int          `yaml:"max_sentences" koanf:"max_sentences"`
}

type VectorStoreConfig struct {
	Backend  BackendType    `yaml:"backend" koanf:"backend"`
	Chromem  ChromemConfig  `yaml:"chromem" koanf:"chromem"`
	PGVector PGVectorConfig `yaml:"pgvector" koanf:"pgvector"`
}

type ChromemConfig struct {
	Path          string `yaml:"path" koanf:"path"`
	Collection    string `yaml:"collection" koanf:"collection"`
	Compress      bool   `yaml:"compress" koanf:"compress"`
	EncryptionKey string `yaml:"encryption_key" koanf:"encryption_key"`
}

type PGVectorConfig struct {
	DSN      string `yaml:"dsn" koanf:"dsn"`
	Password string `yaml:"password" koanf:"password"`
	Table    string `yaml:"table" koanf:"table"`
	// Driver is "pgdriver" (default) or "pq".
	Driver string `yaml:"driver" koanf:"driver"`
	Debug  bool   `yaml:"debug" koanf:"debug"`
}

type RAGConfig struct {
	TopK            int `yaml:"top_k" koanf:"top_k"`
	MaxContextChars int `yaml:"max_context_chars" koanf:"max_context_chars"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
