package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"doc-rag/internal/models"
)

var (
	// ErrGeneration wraps a language-model failure that survived retries.
	ErrGeneration    = errors.New("answer generation failed")
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// RAG answers questions over the indexed documents.
type RAG struct {
	retriever       *Retriever
	generator       *Generator
	topK            int
	maxContextChars int
}

func NewRAG(retriever *Retriever, generator *Generator, topK, maxContextChars int) *RAG {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &RAG{retriever: retriever, generator: generator, topK: topK, maxContextChars: maxContextChars}
}

// Ask retrieves up to k chunks (the configured default when k <= 0), builds
// the context and generates an answer. The model is not called when nothing
// was retrieved.
func (r *RAG) Ask(ctx context.Context, question string, k int) (models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Answer{}, ErrEmptyQuestion
	}
	if k <= 0 {
		k = r.topK
	}

	chunks, err := r.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return models.Answer{}, err
	}
	if len(chunks) == 0 {
		log.Info().Str("question", question).Msg("No documents retrieved")
		return models.NewAnswer(models.NoDocumentsAnswer, nil), nil
	}

	contextText, sources := BuildContext(chunks, r.maxContextChars)
	log.Debug().Int("chunks", len(chunks)).Strs("sources", sources).Msg("Context built")

	return r.generator.Generate(ctx, question, contextText, sources)
}

// Status is the health probe of the query service.
func (r *RAG) Status() string {
	return "ok"
}
