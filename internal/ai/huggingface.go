package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultHFBaseURL = "https://router.huggingface.co/hf-inference/models"

// HFEmbedder calls a hosted feature-extraction endpoint for one model.
type HFEmbedder struct {
	apiKey  string
	model   string
	dim     int
	baseURL string
	http    *http.Client
}

// NewHFEmbedder creates an embedding client for the given model.
func NewHFEmbedder(apiKey, model string, dim int, baseURL string) *HFEmbedder {
	if model == "" {
		model = "BAAI/bge-base-en-v1.5"
	}
	if dim == 0 {
		dim = 768
	}
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}

	// Create HTTP client with optional TLS skip verification
	transport := &http.Transport{}

	// Check for environment variable to skip TLS verification (for corporate proxies, etc.)
	if skipTLS, _ := strconv.ParseBool(os.Getenv("ASSIST_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &HFEmbedder{
		apiKey:  apiKey,
		model:   model,
		dim:     dim,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
	}
}

func (c *HFEmbedder) Model() string { return c.model }

func (c *HFEmbedder) Dim() int { return c.dim }

// EmbedQuery embeds a raw user query, applying the model family's query
// convention and unit-normalizing the result.
func (c *HFEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.embed(ctx, FormatQuery(c.model, query))
}

// EmbedPassage embeds knowledge-base text for storage.
func (c *HFEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, FormatPassage(c.model, text))
}

func (c *HFEmbedder) embed(ctx context.Context, input string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, &ProviderError{
			Kind:     KindConfiguration,
			Provider: "huggingface",
			Model:    c.model,
			Message:  "EMBED_API_TOKEN unset",
		}
	}

	payload := map[string]any{"inputs": input}
	b, _ := json.Marshal(payload)
	url := c.baseURL + "/" + c.model + "/pipeline/feature-extraction"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, &ProviderError{
			Kind:     kindFromStatus(resp.StatusCode),
			Provider: "huggingface",
			Model:    c.model,
			Message:  msg,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	vec, err := decodeVector(body)
	if err != nil {
		return nil, &ProviderError{
			Kind:     KindOther,
			Provider: "huggingface",
			Model:    c.model,
			Message:  err.Error(),
		}
	}
	return Normalize(vec), nil
}

// decodeVector accepts either a bare vector or a single-element batch,
// the two shapes feature-extraction endpoints are known to return.
func decodeVector(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var batch [][]float32
	if err := json.Unmarshal(body, &batch); err == nil && len(batch) > 0 && len(batch[0]) > 0 {
		return batch[0], nil
	}

	return nil, errors.New("no embedding in response")
}
