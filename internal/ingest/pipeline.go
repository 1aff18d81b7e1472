// Package ingest keeps the vector index in sync with a directory of
// documents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"doc-rag/internal/config"
	"doc-rag/internal/embedding"
	"doc-rag/internal/helper"
	"doc-rag/internal/manifest"
	"doc-rag/internal/models"
	"doc-rag/internal/parser"
)

const DefaultPollInterval = 30 * time.Second

// Granularity decides how many rows a document produces.
type Granularity string

const (
	GranularityChunk    Granularity = "chunk"
	GranularityDocument Granularity = "document"
)

// BatchEmbedder embeds the texts of one document in a single call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	SourceDir    string
	Include      []string
	ManifestPath string
	ChunkSize    int
	ChunkOverlap int
	Unit         parser.Unit
	Granularity  Granularity
}

// Result counts the per-document outcomes of one pass.
type Result struct {
	Ingested int
	Skipped  int
	Failed   int
}

type Pipeline struct {
	opts     Options
	embedder BatchEmbedder
	store    models.VectorStore

	afterPass func(Result, error)
}

// candidate is a file selected for a pass.
type candidate struct {
	docID    string
	path     string
	filename string
	// shared is the bare stem when another candidate has the same one.
	shared string
}

func New(opts Options, embedder BatchEmbedder, store models.VectorStore) *Pipeline {
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*.txt", "**/*.md"}
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join(opts.SourceDir, config.DefaultManifestName)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = parser.DefaultChunkSize
		opts.ChunkOverlap = parser.DefaultChunkOverlap
	}
	if opts.Unit == "" {
		opts.Unit = parser.UnitWord
	}
	if opts.Granularity == "" {
		opts.Granularity = GranularityChunk
	}
	return &Pipeline{opts: opts, embedder: embedder, store: store}
}

// RunOnce performs a single ingestion pass. Per-document failures are logged
// and counted; only a missing source directory, an unusable store or a
// cancelled context fail the pass.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	passID, err := helper.GenerateUUID()
	if err != nil {
		return res, err
	}
	logger := log.With().Str("pass_id", passID).Logger()

	if info, err := os.Stat(p.opts.SourceDir); err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: %s", config.ErrMissingSourceDir, p.opts.SourceDir)
	}
	if err := p.store.EnsureSchema(ctx); err != nil {
		return res, fmt.Errorf("preparing vector store: %w", err)
	}

	candidates, err := p.candidates()
	if err != nil {
		return res, err
	}
	m := manifest.Load(p.opts.ManifestPath)
	if err := p.retireShared(ctx, m, candidates); err != nil {
		return res, err
	}
	logger.Info().Str("source_dir", p.opts.SourceDir).Int("candidates", len(candidates)).Msg("Ingestion pass started")

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		docLog := logger.With().Str("doc_id", c.docID).Str("file", c.filename).Logger()

		ingested, chunks, err := p.ingestOne(ctx, m, c)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			docLog.Error().Err(err).Bool("failed", true).Msg("Document failed")
		case !ingested:
			res.Skipped++
			docLog.Info().Bool("skipped", true).Msg("Document unchanged")
		default:
			res.Ingested++
			docLog.Info().Bool("ingested", true).Int("chunks", chunks).Msg("Document ingested")
		}
	}

	logger.Info().Int("ingested", res.Ingested).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("Ingestion pass finished")
	return res, nil
}

// ingestOne brings one document up to date. It reports false when the
// manifest shows the file unchanged.
func (p *Pipeline) ingestOne(ctx context.Context, m *manifest.Manifest, c candidate) (bool, int, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return false, 0, fmt.Errorf("stat: %w", err)
	}
	mtimeNs, size := info.ModTime().UnixNano(), info.Size()
	if m.IsUnchanged(c.docID, mtimeNs, size) {
		return false, 0, nil
	}

	content, err := parser.ReadDocument(c.path)
	if err != nil {
		return false, 0, fmt.Errorf("reading: %w", err)
	}
	if content.Lossy {
		log.Warn().Str("doc_id", c.docID).Msg("Invalid UTF-8 replaced while decoding")
	}
	doc := models.Document{
		DocID:    c.docID,
		Filepath: c.path,
		Filename: c.filename,
		Content:  content.Text,
		MtimeNs:  mtimeNs,
		Size:     size,
	}

	rows, err := p.embed(ctx, doc, p.split(doc))
	if err != nil {
		return false, 0, err
	}
	if err := p.store.Upsert(ctx, doc.DocID, rows); err != nil {
		return false, 0, fmt.Errorf("upserting: %w", err)
	}
	if err := m.Record(doc.DocID, doc.MtimeNs, doc.Size, doc.Filename); err != nil {
		return false, 0, fmt.Errorf("recording manifest: %w", err)
	}
	return true, len(rows), nil
}

// embed computes every vector of the document before anything is written.
func (p *Pipeline) embed(ctx context.Context, doc models.Document, chunks []models.Chunk) ([]models.Row, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, embedding.ErrDimensionMismatch) {
			return nil, fmt.Errorf("refusing to write: %w", err)
		}
		return nil, fmt.Errorf("embedding: %w", err)
	}

	rows := make([]models.Row, len(chunks))
	for i, c := range chunks {
		rows[i] = models.Row{
			ID:         models.RowID(doc.DocID, c.ChunkIndex),
			DocID:      doc.DocID,
			Filepath:   doc.Filepath,
			Filename:   doc.Filename,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Text,
			Embedding:  vectors[i],
		}
	}
	return rows, nil
}

func (p *Pipeline) split(doc models.Document) []models.Chunk {
	var texts []string
	if p.opts.Granularity == GranularityDocument {
		if t := strings.TrimSpace(doc.Content); t != "" {
			texts = []string{t}
		}
	} else {
		texts = parser.Chunk(doc.Content, p.opts.ChunkSize, p.opts.ChunkOverlap, p.opts.Unit)
	}

	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{ParentDocID: doc.DocID, ChunkIndex: i, Text: t}
	}
	return chunks
}

// candidates lists the matching files, sorted by relative path.
func (p *Pipeline) candidates() ([]candidate, error) {
	fsys := os.DirFS(p.opts.SourceDir)
	manifestAbs, _ := filepath.Abs(p.opts.ManifestPath)

	seen := map[string]bool{}
	var rels []string
	for _, pattern := range p.opts.Include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if seen[rel] {
				continue
			}
			seen[rel] = true
			full := filepath.Join(p.opts.SourceDir, filepath.FromSlash(rel))
			if abs, _ := filepath.Abs(full); abs == manifestAbs {
				continue
			}
			if !parser.IsSupported(rel) {
				log.Debug().Str("file", rel).Msg("Skipping unsupported format")
				continue
			}
			rels = append(rels, rel)
		}
	}
	sort.Strings(rels)

	stems := make(map[string]int, len(rels))
	for _, rel := range rels {
		stems[stem(rel)]++
	}

	out := make([]candidate, 0, len(rels))
	for _, rel := range rels {
		c := candidate{
			docID:    stem(rel),
			path:     filepath.Join(p.opts.SourceDir, filepath.FromSlash(rel)),
			filename: path.Base(rel),
		}
		// Files sharing a stem (notes.txt, notes.md) keep their extension
		// so each one owns its rows.
		if stems[c.docID] > 1 {
			c.shared = c.docID
			c.docID = rel
		}
		out = append(out, c)
	}
	return out, nil
}

func stem(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// retireShared removes rows and fingerprints still stored under a bare stem
// that is now shared by several files.
func (p *Pipeline) retireShared(ctx context.Context, m *manifest.Manifest, candidates []candidate) error {
	done := map[string]bool{}
	for _, c := range candidates {
		if c.shared == "" || done[c.shared] {
			continue
		}
		done[c.shared] = true
		if _, ok := m.Get(c.shared); !ok {
			continue
		}
		if err := p.store.Upsert(ctx, c.shared, nil); err != nil {
			return fmt.Errorf("retiring %s: %w", c.shared, err)
		}
		if err := m.Forget(c.shared); err != nil {
			return fmt.Errorf("retiring %s: %w", c.shared, err)
		}
		log.Info().Str("doc_id", c.shared).Msg("Retired document id shared by several files")
	}
	return nil
}

// Watch runs passes until ctx is cancelled, sleeping interval between them.
// A failed pass is logged and the loop continues.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log.Info().Dur("interval", interval).Msg("Watching for document changes")

	for {
		res, err := p.runPass(ctx)
		if p.afterPass != nil {
			p.afterPass(res, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Error().Err(err).Msg("Ingestion pass failed")
		} else if res.Ingested > 0 {
			log.Info().Int("ingested", res.Ingested).Msg("Ingested new or updated documents")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runPass turns a panic inside a pass into an error so the watcher survives.
func (p *Pipeline) runPass(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion pass panicked: %v", r)
			log.Error().Stack().Err(err).Msg("Recovered from panic")
		}
	}()
	return p.RunOnce(ctx)
}
