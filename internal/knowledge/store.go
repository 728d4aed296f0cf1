// Package knowledge provides the vector-similarity lookup backing chat
// prompts: given a query string, return up to N ranked text snippets.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS snippets (
	id        TEXT PRIMARY KEY,
	text      TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}',
	embedding BLOB NOT NULL
);
`

// Config configures the knowledge store.
type Config struct {
	// Path is the sqlite database file. Required.
	Path string

	// Embedder produces vectors for snippets and queries. Required.
	Embedder Embedder

	// Seed populates the store with the built-in AWS corpus when the
	// snippets table is empty. Default: true when zero-valued via
	// Open's cfg handling.
	Seed bool

	Logger *observability.Logger
}

// Store is a sqlite-backed snippet store ranked by cosine distance.
// The corpus is small (documentation snippets), so search is a full
// scan with in-process ranking.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   *observability.Logger
}

// Open opens (creating if needed) the store and seeds the built-in
// corpus when empty and seeding is enabled.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("knowledge store path is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate knowledge store: %w", err)
	}

	s := &Store{db: db, embedder: cfg.Embedder, logger: cfg.Logger}

	if cfg.Seed {
		if err := s.seedIfEmpty(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Add stores one snippet, replacing any existing snippet with the same
// id.
func (s *Store) Add(ctx context.Context, id, text string, metadata map[string]string) error {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed snippet %s: %w", id, err)
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snippets (id, text, metadata, embedding) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET text=excluded.text, metadata=excluded.metadata, embedding=excluded.embedding`,
		id, text, string(meta), encodeVector(vector))
	return err
}

// Search returns up to limit snippets ranked by ascending cosine
// distance to the query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.KnowledgeSnippet, error) {
	if limit <= 0 {
		limit = 3
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, embedding FROM snippets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.KnowledgeSnippet
	for rows.Next() {
		var (
			id, text, meta string
			blob           []byte
		)
		if err := rows.Scan(&id, &text, &meta, &blob); err != nil {
			return nil, err
		}
		vector := decodeVector(blob)
		if len(vector) != len(queryVec) {
			// Dimension mismatch, e.g. the embedding model changed.
			// Skip rather than fail the whole lookup.
			continue
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			metadata = nil
		}
		results = append(results, models.KnowledgeSnippet{
			ID:       id,
			Text:     text,
			Metadata: metadata,
			Distance: cosineDistance(queryVec, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count reports the number of stored snippets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&n)
	return n, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedIfEmpty(ctx context.Context) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if s.logger != nil {
		s.logger.Info(ctx, "seeding knowledge base", "documents", len(seedCorpus))
	}
	for _, doc := range seedCorpus {
		if err := s.Add(ctx, doc.id, doc.text, doc.metadata); err != nil {
			return fmt.Errorf("seed %s: %w", doc.id, err)
		}
	}
	return nil
}

// cosineDistance is 1 - cosine similarity; identical direction gives 0.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
