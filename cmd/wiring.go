package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"doc-rag/internal/chromemdb"
	"doc-rag/internal/config"
	"doc-rag/internal/db"
	"doc-rag/internal/embedding"
	"doc-rag/internal/helper"
	"doc-rag/internal/ingest"
	"doc-rag/internal/llmservice"
	"doc-rag/internal/models"
	"doc-rag/internal/parser"
	"doc-rag/internal/rag"
)

func apiKey(cfg *config.Config) (string, error) {
	if !cfg.NeedsAPIKey() {
		return "", nil
	}
	return config.ResolveAPIKey()
}

func openChromem(cfg *config.Config) (*chromemdb.VectorDBManager, error) {
	c := cfg.VectorStore.Chromem
	if err := helper.CreateFolder(c.Path); err != nil {
		return nil, err
	}
	return chromemdb.NewVectorDBManager(c.Path, c.Collection, false, c.Compress, c.EncryptionKey)
}

func openStore(ctx context.Context, cfg *config.Config) (models.VectorStore, error) {
	var (
		store models.VectorStore
		err   error
	)
	switch cfg.VectorStore.Backend {
	case config.BackendPGVector:
		store, err = db.Open(&cfg.VectorStore.PGVector, cfg.Embedding.Dimension)
	default:
		store, err = openChromem(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	log.Debug().Str("backend", string(cfg.VectorStore.Backend)).Msg("Vector store ready")
	return store, nil
}

func newPipeline(cfg *config.Config, store models.VectorStore) (*ingest.Pipeline, error) {
	key, err := apiKey(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewFromConfig(cfg.Embedding, key)
	if err != nil {
		return nil, err
	}
	return ingest.New(ingest.Options{
		SourceDir:    cfg.SourceDir,
		Include:      cfg.Include,
		ManifestPath: cfg.ManifestFile(),
		ChunkSize:    cfg.Chunk.Size,
		ChunkOverlap: cfg.Chunk.Overlap,
		Unit:         parser.Unit(cfg.Chunk.Unit),
		Granularity:  ingest.Granularity(cfg.Chunk.Granularity),
	}, embedder, store), nil
}

func newRAG(cfg *config.Config, store models.VectorStore) (*rag.RAG, error) {
	key, err := apiKey(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewFromConfig(cfg.Embedding, key)
	if err != nil {
		return nil, err
	}
	model, err := llmservice.NewModel(cfg.LLM, key)
	if err != nil {
		return nil, err
	}
	generator := rag.NewGenerator(llmservice.NewClient(model, cfg.LLM.MaxRetries), cfg.LLM.MaxSentences, cfg.LLM.Temperature)
	return rag.NewRAG(rag.NewRetriever(embedder, store), generator, cfg.RAG.TopK, cfg.RAG.MaxContextChars), nil
}
