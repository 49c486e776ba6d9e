package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/paydesk/assist/pkg/models"
)

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// ChunkStore defines the methods that the Store must implement.
type ChunkStore interface {
	Migrate(ctx context.Context, dim int) error
	UpsertChunk(ctx context.Context, c models.Chunk, vec []float32, contentHash string) error
	Search(ctx context.Context, vec []float32, k int, opt QueryOpts) ([]models.RetrievedChunk, error)
	GetChunkMeta(ctx context.Context, contentHash string) (ChunkMeta, bool, error)
	GetTopics(ctx context.Context) ([]string, error)
	GetSources(ctx context.Context) ([]string, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
  id            BIGSERIAL PRIMARY KEY,
  content       TEXT NOT NULL,
  source_url    TEXT NOT NULL DEFAULT '',
  section       TEXT NOT NULL DEFAULT '',
  topic         TEXT NOT NULL DEFAULT '',
  content_type  TEXT NOT NULL DEFAULT '',
  token_count   INT NOT NULL DEFAULT 0,
  chunk_method  TEXT NOT NULL DEFAULT '',
  metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding     vector(%d),
  content_hash  TEXT NOT NULL,
  created_at    TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS chunks_content_hash_uidx
  ON chunks (content_hash);

CREATE INDEX IF NOT EXISTS chunks_topic_idx
  ON chunks (topic);

CREATE INDEX IF NOT EXISTS chunks_source_url_idx
  ON chunks (source_url);

CREATE INDEX IF NOT EXISTS chunks_metadata_gin
  ON chunks USING GIN (metadata);

CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	return err
}

// UpsertChunk inserts or updates a chunk keyed by its content hash.
func (s *Store) UpsertChunk(
	ctx context.Context,
	c models.Chunk,
	vec []float32,
	contentHash string,
) error {
	var ev any
	if vec != nil {
		ev = pgvector.NewVector(vec)
	} else {
		ev = (*pgvector.Vector)(nil)
	}

	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const q = `
		INSERT INTO chunks (
			content, source_url, section, topic, content_type,
			token_count, chunk_method, metadata, embedding, content_hash, created_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now()
		)
		ON CONFLICT (content_hash) DO UPDATE SET
			content      = EXCLUDED.content,
			source_url   = EXCLUDED.source_url,
			section      = EXCLUDED.section,
			topic        = EXCLUDED.topic,
			content_type = EXCLUDED.content_type,
			token_count  = EXCLUDED.token_count,
			chunk_method = EXCLUDED.chunk_method,
			metadata     = EXCLUDED.metadata,
			embedding    = COALESCE(EXCLUDED.embedding, chunks.embedding),
			created_at   = chunks.created_at;`

	_, err = s.pool.Exec(ctx, q,
		c.Content, c.SourceURL, c.Section, c.Topic, c.ContentType,
		c.TokenCount, c.ChunkMethod, mb, ev, contentHash,
	)
	return err
}

// QueryOpts are optional similarity-search filters. Zero values leave a
// filter unset; the default retrieval path sets none of them.
type QueryOpts struct {
	SourceURL     string         // optional: exact source URL
	Topic         string         // optional: exact topic tag
	ContentType   string         // optional: "faq"|"policy"|"product"|...
	MinSimilarity float64        // optional: drop rows below this cosine similarity
	Metadata      map[string]any // optional: JSONB containment predicate
}

// Search returns the k nearest chunks by cosine similarity, most
// similar first. An empty result set yields an empty slice.
func (s *Store) Search(
	ctx context.Context,
	vec []float32,
	k int,
	opt QueryOpts,
) ([]models.RetrievedChunk, error) {
	qv := pgvector.NewVector(vec)

	args := []any{qv}
	ai := 2

	where := "embedding IS NOT NULL"
	if opt.SourceURL != "" {
		where += fmt.Sprintf(" AND source_url = $%d", ai)
		args = append(args, opt.SourceURL)
		ai++
	}
	if opt.Topic != "" {
		where += fmt.Sprintf(" AND topic = $%d", ai)
		args = append(args, opt.Topic)
		ai++
	}
	if opt.ContentType != "" {
		where += fmt.Sprintf(" AND content_type = $%d", ai)
		args = append(args, opt.ContentType)
		ai++
	}
	if opt.MinSimilarity > 0 {
		where += fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", ai)
		args = append(args, opt.MinSimilarity)
		ai++
	}
	if len(opt.Metadata) > 0 {
		mb, err := json.Marshal(opt.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata filter: %w", err)
		}
		where += fmt.Sprintf(" AND metadata @> $%d::jsonb", ai)
		args = append(args, mb)
	}

	q := fmt.Sprintf(`
SELECT
  id, content, source_url, section, topic, content_type,
  token_count, chunk_method, metadata, created_at,
  LEAST(GREATEST(1 - (embedding <=> $1), 0), 1) AS similarity
FROM chunks
WHERE %s
ORDER BY embedding <=> $1
LIMIT %d;
`, where, k)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RetrievedChunk{}
	for rows.Next() {
		var c models.Chunk
		var sim float64
		if err := rows.Scan(
			&c.ID, &c.Content, &c.SourceURL, &c.Section, &c.Topic, &c.ContentType,
			&c.TokenCount, &c.ChunkMethod, &c.Metadata, &c.CreatedAt,
			&sim,
		); err != nil {
			return nil, err
		}
		out = append(out, models.RetrievedChunk{Chunk: c, Similarity: sim})
	}
	return out, rows.Err()
}

// ChunkMeta holds ingestion metadata about a stored chunk.
type ChunkMeta struct {
	ID           int64
	HasEmbedding bool
}

// GetChunkMeta reports whether a chunk with this content hash already
// exists and whether it carries an embedding.
func (s *Store) GetChunkMeta(ctx context.Context, contentHash string) (ChunkMeta, bool, error) {
	const q = `
      SELECT id, embedding IS NOT NULL
      FROM chunks
      WHERE content_hash = $1
      LIMIT 1`
	var m ChunkMeta
	err := s.pool.QueryRow(ctx, q, contentHash).Scan(&m.ID, &m.HasEmbedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChunkMeta{}, false, nil
		}
		return ChunkMeta{}, false, err
	}
	return m, true, nil
}

// GetTopics returns all distinct non-empty topic tags.
func (s *Store) GetTopics(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT topic FROM chunks WHERE topic <> '' ORDER BY topic`)
}

// GetSources returns all distinct non-empty source URLs.
func (s *Store) GetSources(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT source_url FROM chunks WHERE source_url <> '' ORDER BY source_url`)
}

func (s *Store) distinct(ctx context.Context, q string) ([]string, error) {
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vals []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
