package ai

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// FallbackEmbedder tries a primary Embedder and, when the failure says
// the model itself is unavailable (payment required, forbidden, not
// found, rate limited), retries once against a secondary. Each tier
// formats the query for its own model, so the fallback never reuses the
// primary's formatted input. All other failures, and failures of the
// secondary, are terminal.
type FallbackEmbedder struct {
	primary   Embedder
	secondary Embedder
}

// NewFallbackEmbedder creates a two-tier embedder.
func NewFallbackEmbedder(primary, secondary Embedder) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, secondary: secondary}
}

func (f *FallbackEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.embed(ctx, query, Embedder.EmbedQuery)
}

func (f *FallbackEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return f.embed(ctx, text, Embedder.EmbedPassage)
}

func (f *FallbackEmbedder) embed(ctx context.Context, text string, call func(Embedder, context.Context, string) ([]float32, error)) ([]float32, error) {
	vec, err := call(f.primary, ctx, text)
	if err == nil {
		return vec, nil
	}

	var pe *ProviderError
	if !errors.As(err, &pe) || !pe.Fallbackable() {
		return nil, err
	}

	log.Warn().
		Str("primary", f.primary.Model()).
		Str("fallback", f.secondary.Model()).
		Str("kind", pe.Kind.String()).
		Msg("primary embedding model unavailable, falling back")

	return call(f.secondary, ctx, text)
}

// Model reports the primary model identifier.
func (f *FallbackEmbedder) Model() string { return f.primary.Model() }

func (f *FallbackEmbedder) Dim() int { return f.primary.Dim() }
