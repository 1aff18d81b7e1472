package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"doc-rag/internal/models"
)

// metadata keys stored with every row
const (
	metaDocID      = "doc_id"
	metaFilepath   = "filepath"
	metaFilename   = "filename"
	metaChunkIndex = "chunk_index"
)

var errNoEmbedding = errors.New("chromemdb: rows must carry a precomputed embedding")

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	// mu keeps Count+Query consistent against deletes. Upsert releases it
	// between its delete and insert steps.
	mu             sync.RWMutex
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	encryptionKey  string
}

// NewVectorDBManager opens a persistent database at dbPath, or an in-memory
// one when inMemory is set.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
	}, nil
}

// embeddings are always computed by the caller
func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// EnsureSchema creates or reads the collection.
func (m *VectorDBManager) EnsureSchema(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, precomputedOnly)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return nil
}

func (m *VectorDBManager) col() (*chromem.Collection, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection %q is not initialized", m.collectionName)
	}
	return m.collection, nil
}

// Upsert removes every row of docID, then adds rows.
func (m *VectorDBManager) Upsert(ctx context.Context, docID string, rows []models.Row) error {
	docs := make([]chromem.Document, 0, len(rows))
	for _, r := range rows {
		if len(r.Embedding) == 0 {
			return errNoEmbedding
		}
		docs = append(docs, chromem.Document{
			ID:      r.ID,
			Content: r.Content,
			Metadata: map[string]string{
				metaDocID:      docID,
				metaFilepath:   r.Filepath,
				metaFilename:   r.Filename,
				metaChunkIndex: strconv.Itoa(r.ChunkIndex),
			},
			Embedding: r.Embedding,
		})
	}

	if err := m.deleteDoc(ctx, docID); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.col()
	if err != nil {
		return err
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Str("doc_id", docID).Int("rows", len(docs)).Msg("Upserted rows")
	return nil
}

func (m *VectorDBManager) deleteDoc(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.col()
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, map[string]string{metaDocID: docID}, nil); err != nil {
		return fmt.Errorf("failed to delete rows of %s: %w", docID, err)
	}
	return nil
}

// Search performs a cosine similarity search.
func (m *VectorDBManager) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.col()
	if err != nil {
		return nil, err
	}

	n := min(k, c.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[metaChunkIndex])
		out = append(out, models.SearchResult{
			Row: models.Row{
				ID:         r.ID,
				DocID:      r.Metadata[metaDocID],
				Filepath:   r.Metadata[metaFilepath],
				Filename:   r.Metadata[metaFilename],
				ChunkIndex: idx,
				Content:    r.Content,
				Embedding:  r.Embedding,
			},
			Score: r.Similarity,
		})
	}
	return out, nil
}

func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.col()
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Close is a no-op; persistent databases write through on every change.
func (m *VectorDBManager) Close() error {
	return nil
}

// export to file
func (m *VectorDBManager) Export(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Msg("Importing collection")
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := m.db.GetCollection(m.collectionName, precomputedOnly)
	if c == nil {
		return fmt.Errorf("collection %q not found in %s", m.collectionName, filePath)
	}
	m.collection = c
	return nil
}
