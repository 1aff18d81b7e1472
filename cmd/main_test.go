package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag/internal/config"
	"doc-rag/internal/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestIngestRejectsUnknownMode(t *testing.T) {
	_, err := execute(t, "ingest", "sometimes")
	assert.Error(t, err)
}

func TestIngestMissingSourceDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.yaml")
	t.Setenv("RAG_SOURCE_DIR", filepath.Join(t.TempDir(), "absent"))

	_, err := execute(t, "--config", path, "ingest", "once")
	assert.ErrorIs(t, err, config.ErrMissingSourceDir)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.yaml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Embedding.Model, loaded.Embedding.Model)

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err, "refuses to overwrite without --force")

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "source_dir: data")
}

func TestSnapshotRequiresChromem(t *testing.T) {
	t.Setenv("RAG_VECTOR_STORE__BACKEND", "pgvector")
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "rag.yaml"), "snapshot", "export", "out.gob")
	assert.Error(t, err)
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, models.NewAnswer("RAG combines retrieval and generation.", []string{"rag.txt", "intro.txt"}))
	assert.Equal(t, "RAG combines retrieval and generation.\n\nSources: rag.txt, intro.txt\n", buf.String())
}
