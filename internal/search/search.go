package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paydesk/assist/internal/ai"
	"github.com/paydesk/assist/internal/store"
	"github.com/paydesk/assist/pkg/models"
)

// DefaultK is the result count used when the caller does not ask for a
// specific one. Non-positive k values are normalized to it before the
// backend is called.
const DefaultK = 5

// Service performs semantic retrieval: embed the query, then run a
// similarity search against the chunk store.
type Service struct {
	Embedder ai.Embedder
	Store    store.ChunkStore
}

// NewService creates a new search service with the provided embedder and store
func NewService(embedder ai.Embedder, store store.ChunkStore) *Service {
	return &Service{
		Embedder: embedder,
		Store:    store,
	}
}

// SemanticSearch retrieves the k most similar chunks for q with no
// filters, recording per-stage latencies.
func (s *Service) SemanticSearch(ctx context.Context, q string, k int) (models.SearchResult, error) {
	return s.Search(ctx, q, k, store.QueryOpts{})
}

// Search is SemanticSearch with caller-supplied filters.
func (s *Service) Search(ctx context.Context, q string, k int, opt store.QueryOpts) (models.SearchResult, error) {
	q = strings.TrimSpace(q)
	if k <= 0 {
		k = DefaultK
	}

	start := time.Now()
	vec, err := s.Embedder.EmbedQuery(ctx, q)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("embed query: %w", err)
	}
	embeddingMs := time.Since(start).Milliseconds()

	start = time.Now()
	chunks, err := s.Store.Search(ctx, vec, k, opt)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("similarity search: %w", err)
	}
	if chunks == nil {
		chunks = []models.RetrievedChunk{}
	}

	return models.SearchResult{
		Chunks:      chunks,
		LatencyMs:   time.Since(start).Milliseconds(),
		EmbeddingMs: embeddingMs,
		K:           k,
	}, nil
}
