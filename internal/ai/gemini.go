package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator answers grounded prompts through the Gemini API.
type GeminiGenerator struct {
	config *GenConfig
	client *genai.Client
}

// NewGeminiGenerator creates a generation client for the Gemini API.
func NewGeminiGenerator(ctx context.Context, config *GenConfig) (*GeminiGenerator, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, &ProviderError{
			Kind:     KindConfiguration,
			Provider: "gemini",
			Model:    config.Model,
			Message:  "GEN_API_KEY unset",
		}
	}

	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 512
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		config: config,
		client: client,
	}, nil
}

// Generate sends the prompt and returns the trimmed answer text. The
// task is extraction from supplied context, so sampling stays near
// deterministic.
func (c *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.1)
	cfg := genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.config.MaxTokens,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), &cfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no answer returned")
	}

	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}
