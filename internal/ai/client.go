package ai

import (
	"context"
	"errors"
	"strings"
)

// Embedder turns text into a unit-normalized embedding vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dim() int
}

// Generator produces answer text from a grounded prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderHuggingFace Provider = "huggingface"
	ProviderGemini      Provider = "gemini"
	ProviderStub        Provider = "stub"
)

// EmbedConfig holds configuration for embedding clients.
type EmbedConfig struct {
	Provider      Provider
	APIKey        string
	Model         string
	FallbackModel string
	Dim           int
	BaseURL       string
}

// GenConfig holds configuration for generation clients.
type GenConfig struct {
	Provider  Provider
	APIKey    string
	Model     string
	MaxTokens int32
}

// NewEmbedder creates the configured embedding client. When a fallback
// model is set, the primary is wrapped in a FallbackEmbedder.
func NewEmbedder(config *EmbedConfig) (Embedder, error) {
	if config == nil {
		return nil, errors.New("embed config is required")
	}

	switch config.Provider {
	case ProviderHuggingFace:
		primary := NewHFEmbedder(config.APIKey, config.Model, config.Dim, config.BaseURL)
		if strings.TrimSpace(config.FallbackModel) == "" {
			return primary, nil
		}
		secondary := NewHFEmbedder(config.APIKey, config.FallbackModel, config.Dim, config.BaseURL)
		return NewFallbackEmbedder(primary, secondary), nil
	case ProviderStub:
		return NewStubEmbedder(config.Model, config.Dim), nil
	default:
		return nil, errors.New("unsupported embedding provider: " + string(config.Provider))
	}
}

// NewGenerator creates the configured generation client.
func NewGenerator(ctx context.Context, config *GenConfig) (Generator, error) {
	if config == nil {
		return nil, errors.New("gen config is required")
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, config)
	case ProviderStub:
		return NewStubGenerator(""), nil
	default:
		return nil, errors.New("unsupported generation provider: " + string(config.Provider))
	}
}

// StubEmbedder is a deterministic Embedder for testing.
type StubEmbedder struct {
	model string
	dim   int
}

// NewStubEmbedder creates a new StubEmbedder
func NewStubEmbedder(model string, dim int) *StubEmbedder {
	if dim == 0 {
		dim = 8
	}
	return &StubEmbedder{model: model, dim: dim}
}

func (s *StubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	v := make([]float32, s.dim)
	v[0] = 1
	return v, nil
}

func (s *StubEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return s.EmbedQuery(ctx, text)
}

func (s *StubEmbedder) Model() string { return s.model }

func (s *StubEmbedder) Dim() int { return s.dim }

// StubGenerator returns a canned answer for testing.
type StubGenerator struct {
	answer string
}

// NewStubGenerator creates a new StubGenerator
func NewStubGenerator(answer string) *StubGenerator {
	if answer == "" {
		answer = "I don't have enough information in the provided context. [1]"
	}
	return &StubGenerator{answer: answer}
}

func (s *StubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.answer, nil
}
