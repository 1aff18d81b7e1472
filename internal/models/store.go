package models

import (
	"context"
	"fmt"
)

// Row is one stored unit of the vector index. Every row of a document shares
// its DocID; the pair (DocID, ChunkIndex) is unique.
type Row struct {
	ID         string
	DocID      string
	Filepath   string
	Filename   string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// SearchResult is a row returned from a similarity search. Higher Score means
// more similar.
type SearchResult struct {
	Row   Row
	Score float32
}

// RowID builds the stable id of a chunk row.
func RowID(docID string, chunkIndex int) string {
	return fmt.Sprintf("%s::chunk%04d", docID, chunkIndex)
}

// VectorStore is the persistent table of rows keyed by document id.
type VectorStore interface {
	// EnsureSchema creates the backing table or collection if it does not exist.
	EnsureSchema(ctx context.Context) error
	// Upsert replaces every row of docID with rows. An empty rows slice
	// removes the document.
	Upsert(ctx context.Context, docID string, rows []Row) error
	// Search returns at most k rows ordered by decreasing similarity.
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
