package models

import "time"

// Chunk is one unit of knowledge-base content with its provenance.
type Chunk struct {
	ID          int64          `json:"id"`
	Content     string         `json:"content"`
	SourceURL   string         `json:"source_url,omitempty"`
	Section     string         `json:"section,omitempty"`
	Topic       string         `json:"topic,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	TokenCount  int            `json:"token_count,omitempty"`
	ChunkMethod string         `json:"chunk_method,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

// RetrievedChunk is a Chunk paired with its cosine similarity to the
// query vector, in [0,1], higher meaning more relevant.
type RetrievedChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// SearchResult is the outcome of one retrieval call. Chunks are ordered
// by descending similarity as returned by the store.
type SearchResult struct {
	Chunks      []RetrievedChunk `json:"chunks"`
	LatencyMs   int64            `json:"latency_ms"`
	EmbeddingMs int64            `json:"embedding_ms"`
	K           int              `json:"k"`
}

// Roles for a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one assistant response: the answer text, the chunks cited in
// it (position i backs citation [i+1]), and per-stage latencies.
type Turn struct {
	Role         string           `json:"role"`
	Text         string           `json:"text"`
	Citations    []RetrievedChunk `json:"citations,omitempty"`
	EmbeddingMs  int64            `json:"embedding_ms"`
	SearchMs     int64            `json:"search_ms"`
	GenerationMs int64            `json:"generation_ms"`
	Failed       bool             `json:"failed,omitempty"`
}
