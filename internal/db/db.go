package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"doc-rag/internal/config"
	"doc-rag/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string          `bun:"id,pk"`
	DocID         string          `bun:"doc_id,notnull"`
	Filepath      string          `bun:"filepath,notnull"`
	Filename      string          `bun:"filename,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

type scoredDocument struct {
	Document `bun:",extend"`
	Score    float64 `bun:"score"`
}

// Store is the Postgres + pgvector implementation of models.VectorStore.
type Store struct {
	db        *bun.DB
	table     string
	dimension int
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver. It does not
// dial until the first query.
func ConnectDB(cfg *config.PGVectorConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	case "", "pgdriver":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown postgres driver %q: must be pgdriver or pq", cfg.Driver)
	}
}

func NewStore(db *bun.DB, table string, dimension int) *Store {
	if table == "" {
		table = "documents"
	}
	return &Store{db: db, table: table, dimension: dimension}
}

// Open connects using cfg and returns a ready Store.
func Open(cfg *config.PGVectorConfig, dimension int) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(NewDB(sqldb, cfg.Debug), cfg.Table, dimension), nil
}

func (s *Store) tableExpr() (string, bun.Ident) {
	return "? AS d", bun.Ident(s.table)
}

// EnsureSchema creates the extension, the table with a vector(D) column and
// the doc_id index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []struct {
		query string
		args  []interface{}
	}{
		{"CREATE EXTENSION IF NOT EXISTS vector", nil},
		{`CREATE TABLE IF NOT EXISTS ? (
	id text PRIMARY KEY,
	doc_id text NOT NULL,
	filepath text NOT NULL,
	filename text NOT NULL,
	chunk_index integer NOT NULL,
	content text NOT NULL,
	embedding vector(?) NOT NULL
)`, []interface{}{bun.Ident(s.table), s.dimension}},
		{"CREATE INDEX IF NOT EXISTS ? ON ? (doc_id)", []interface{}{bun.Ident(s.table + "_doc_id_idx"), bun.Ident(s.table)}},
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("ensuring schema of %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *Store) deleteQuery(idb bun.IDB, docID string) *bun.DeleteQuery {
	return idb.NewDelete().
		Model((*Document)(nil)).
		ModelTableExpr(s.tableExpr()).
		Where("d.doc_id = ?", docID)
}

func (s *Store) searchQuery(vector []float32, k int, dest *[]scoredDocument) *bun.SelectQuery {
	v := pgvector.NewVector(vector)
	return s.db.NewSelect().
		Model(dest).
		ModelTableExpr(s.tableExpr()).
		Column("d.id", "d.doc_id", "d.filepath", "d.filename", "d.chunk_index", "d.content").
		ColumnExpr("1 - (d.embedding <=> ?) AS score", v).
		OrderExpr("d.embedding <=> ?", v).
		Limit(k)
}

// Upsert replaces the rows of docID inside one transaction.
func (s *Store) Upsert(ctx context.Context, docID string, rows []models.Row) error {
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			ID:         r.ID,
			DocID:      docID,
			Filepath:   r.Filepath,
			Filename:   r.Filename,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Embedding:  pgvector.NewVector(r.Embedding),
		})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.deleteQuery(tx, docID).Exec(ctx); err != nil {
			return fmt.Errorf("deleting rows of %s: %w", docID, err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&docs).ModelTableExpr(s.tableExpr()).Exec(ctx); err != nil {
			return fmt.Errorf("inserting rows of %s: %w", docID, err)
		}
		log.Debug().Str("doc_id", docID).Int("rows", len(docs)).Msg("Upserted rows")
		return nil
	})
}

// Search orders rows by cosine distance; Score is 1 - distance.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	var docs []scoredDocument
	if err := s.searchQuery(vector, k, &docs).Scan(ctx); err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.table, err)
	}

	out := make([]models.SearchResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.SearchResult{
			Row: models.Row{
				ID:         d.ID,
				DocID:      d.DocID,
				Filepath:   d.Filepath,
				Filename:   d.Filename,
				ChunkIndex: d.ChunkIndex,
				Content:    d.Content,
			},
			Score: float32(d.Score),
		})
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).ModelTableExpr(s.tableExpr()).Count(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
