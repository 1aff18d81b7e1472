package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag/internal/models"
)

func newStore(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager("", "documents", true, false, "")
	require.NoError(t, err)
	require.NoError(t, m.EnsureSchema(context.Background()))
	return m
}

func rows(docID, filename string, vecs ...[]float32) []models.Row {
	out := make([]models.Row, len(vecs))
	for i, v := range vecs {
		out[i] = models.Row{
			ID:         models.RowID(docID, i),
			DocID:      docID,
			Filepath:   "data/" + filename,
			Filename:   filename,
			ChunkIndex: i,
			Content:    fmt.Sprintf("%s chunk %d", docID, i),
			Embedding:  v,
		}
	}
	return out
}

func TestSearchEmptyCollection(t *testing.T) {
	m := newStore(t)
	res, err := m.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestUpsertBeforeSchema(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, false, "")
	require.NoError(t, err)
	assert.Error(t, m.Upsert(context.Background(), "a", rows("a", "a.txt", []float32{1, 0, 0})))
}

func TestUpsertReplacesAllRowsOfDocument(t *testing.T) {
	ctx := context.Background()
	m := newStore(t)

	require.NoError(t, m.Upsert(ctx, "a", rows("a", "a.txt", []float32{1, 0, 0}, []float32{1, 1, 0}, []float32{1, 0, 1})))
	require.NoError(t, m.Upsert(ctx, "b", rows("b", "b.txt", []float32{0, 1, 0}, []float32{0, 0, 1})))
	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, m.Upsert(ctx, "a", rows("a", "a.txt", []float32{1, 0, 0})))
	n, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, m.Upsert(ctx, "b", nil))
	n, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	m := newStore(t)
	require.NoError(t, m.Upsert(ctx, "intro", rows("intro", "intro.txt", []float32{0, 1, 0})))
	require.NoError(t, m.Upsert(ctx, "rag", rows("rag", "rag.txt", []float32{1, 0.1, 0})))

	res, err := m.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 2, "k is clamped to the row count")
	assert.Equal(t, "rag.txt", res[0].Row.Filename)
	assert.Equal(t, "rag", res[0].Row.DocID)
	assert.Equal(t, "data/rag.txt", res[0].Row.Filepath)
	assert.Equal(t, 0, res[0].Row.ChunkIndex)
	assert.Greater(t, res[0].Score, res[1].Score)

	res, err = m.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "rag.txt", res[0].Row.Filename)
}

func TestConcurrentSearchDuringUpsert(t *testing.T) {
	ctx := context.Background()
	m := newStore(t)
	require.NoError(t, m.Upsert(ctx, "a", rows("a", "a.txt", []float32{1, 0, 0}, []float32{1, 1, 0})))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, err := m.Search(ctx, []float32{1, 0, 0}, 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(res), 3)
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, m.Upsert(ctx, "a", rows("a", "a.txt", []float32{1, 0, float32(i)}, []float32{1, 1, 0}, []float32{0, 1, 1})))
	}
	close(stop)
	wg.Wait()

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	m := newStore(t)
	require.NoError(t, m.Upsert(ctx, "rag", rows("rag", "rag.txt", []float32{1, 0, 0}, []float32{0, 1, 0})))

	file := filepath.Join(t.TempDir(), "snapshot.gob")
	require.NoError(t, m.Export(file))

	other, err := NewVectorDBManager("", "documents", true, false, "")
	require.NoError(t, err)
	require.NoError(t, other.Import(file))

	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, m.Export(""))
}
