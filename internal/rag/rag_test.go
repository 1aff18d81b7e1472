package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag/internal/chromemdb"
	"doc-rag/internal/embedding"
	"doc-rag/internal/embedding/embeddingtest"
	"doc-rag/internal/ingest"
	"doc-rag/internal/llmservice"
	"doc-rag/internal/llmservice/llmtest"
	"doc-rag/internal/models"
)

const dim = 32

type fixture struct {
	rag   *RAG
	model *llmtest.FakeModel
	dir   string
	embed *embedding.Embedder
	store *chromemdb.VectorDBManager
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager("", "documents", true, false, "")
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	embed := embedding.New(embeddingtest.NewVocabEmbedder(dim), dim)
	model := &llmtest.FakeModel{Responses: replies}
	r := NewRAG(NewRetriever(embed, store), NewGenerator(llmservice.NewClient(model, 2), 6, 0), 3, 0)
	return &fixture{rag: r, model: model, dir: t.TempDir(), embed: embed, store: store}
}

func (f *fixture) ingest(t *testing.T, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0644))
	}
	_, err := ingest.New(ingest.Options{SourceDir: f.dir}, f.embed, f.store).RunOnce(context.Background())
	require.NoError(t, err)
}

func TestAskEmptyIndexDoesNotCallModel(t *testing.T) {
	f := newFixture(t, `{"answer":"should not happen","sources":["x.txt"]}`)

	ans, err := f.rag.Ask(context.Background(), "What is RAG?", 3)
	require.NoError(t, err)
	assert.Equal(t, models.NoDocumentsAnswer, ans.Answer)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, f.model.Calls())
}

func TestAskEndToEnd(t *testing.T) {
	f := newFixture(t, `{"answer": "RAG combines retrieval and generation.", "sources": []}`)
	f.ingest(t, map[string]string{
		"intro.txt": "Data engineering is fun",
		"rag.txt":   "RAG combines retrieval and generation",
	})

	ans, err := f.rag.Ask(context.Background(), "What is RAG?", 1)
	require.NoError(t, err)
	assert.Equal(t, "RAG combines retrieval and generation.", ans.Answer)
	assert.Equal(t, []string{"rag.txt"}, ans.Sources)

	prompt := f.model.LastPrompt()
	assert.Contains(t, prompt, "Filename: rag.txt")
	assert.NotContains(t, prompt, "Data engineering is fun")
}

func TestAskDefaultK(t *testing.T) {
	f := newFixture(t, `{"answer": "ok", "sources": []}`)
	f.ingest(t, map[string]string{
		"a.txt": "alpha retrieval",
		"b.txt": "beta retrieval",
		"c.txt": "gamma retrieval",
		"d.txt": "delta retrieval",
	})

	ans, err := f.rag.Ask(context.Background(), "retrieval", 0)
	require.NoError(t, err)
	assert.Len(t, ans.Sources, 3)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.rag.Ask(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskSurfacesGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.model.Err = assert.AnError
	f.ingest(t, map[string]string{"rag.txt": "RAG combines retrieval and generation"})

	_, err := f.rag.Ask(context.Background(), "What is RAG?", 1)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", newFixture(t).rag.Status())
}
