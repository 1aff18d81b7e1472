package rag

import (
	"context"
	"fmt"

	"doc-rag/internal/models"
)

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder QueryEmbedder
	store    models.VectorStore
}

func NewRetriever(embedder QueryEmbedder, store models.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns at most k chunks ordered by decreasing similarity. An
// empty index yields an empty slice, not an error. k <= 0 means the default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = models.DefaultTopK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	hits, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, models.RetrievedChunk{
			Filename:   h.Row.Filename,
			Filepath:   h.Row.Filepath,
			ChunkIndex: h.Row.ChunkIndex,
			Content:    h.Row.Content,
			Score:      h.Score,
		})
	}
	return chunks, nil
}
