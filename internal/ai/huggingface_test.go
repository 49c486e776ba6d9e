package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockTransport implements http.RoundTripper for testing
type MockTransport struct {
	mu             sync.RWMutex
	responses      map[string]*http.Response
	responseBodies map[string]string
	requests       []*http.Request
	requestBodies  []string
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses:      make(map[string]*http.Response),
		responseBodies: make(map[string]string),
	}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store the request and its body for inspection
	m.requests = append(m.requests, req)
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	m.requestBodies = append(m.requestBodies, body)

	key := fmt.Sprintf("%s %s", req.Method, req.URL.String())
	if respData, exists := m.responses[key]; exists {
		return &http.Response{
			StatusCode: respData.StatusCode,
			Status:     respData.Status,
			Body:       io.NopCloser(strings.NewReader(m.responseBodies[key])),
			Header:     make(http.Header),
		}, nil
	}

	// Default response if no mock is set up
	return &http.Response{
		StatusCode: 500,
		Status:     "500 Internal Server Error",
		Body:       io.NopCloser(strings.NewReader(`{"error": "Mock not configured"}`)),
		Header:     make(http.Header),
	}, nil
}

func (m *MockTransport) AddResponse(method, url string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s %s", method, url)
	m.responses[key] = &http.Response{
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
	}
	m.responseBodies[key] = body
}

func (m *MockTransport) RequestBodies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bodies := make([]string, len(m.requestBodies))
	copy(bodies, m.requestBodies)
	return bodies
}

const testBaseURL = "https://embed.test/models"

func embedURL(model string) string {
	return testBaseURL + "/" + model + "/pipeline/feature-extraction"
}

// Helper function to create an embedder with mock transport
func createMockEmbedder(model string, transport *MockTransport) *HFEmbedder {
	e := NewHFEmbedder("test-api-key", model, 4, testBaseURL)
	e.http = &http.Client{
		Transport: transport,
		Timeout:   20 * time.Second,
	}
	return e
}

func TestHFEmbedder_EmbedQuery(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		statusCode int
		body       string
		expectDim  int
		expectKind ErrorKind
		expectErr  bool
	}{
		{
			name:       "flat vector response",
			model:      "sentence-transformers/all-MiniLM-L6-v2",
			statusCode: 200,
			body:       `[0.1, 0.2, 0.3, 0.4]`,
			expectDim:  4,
		},
		{
			name:       "single-element batch response",
			model:      "sentence-transformers/all-MiniLM-L6-v2",
			statusCode: 200,
			body:       `[[1.0, 2.0, 2.0, 0.0]]`,
			expectDim:  4,
		},
		{
			name:       "rate limited",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 429,
			body:       `{"error": "Rate limit reached"}`,
			expectErr:  true,
			expectKind: KindRateLimited,
		},
		{
			name:       "payment required",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 402,
			body:       `{"error": "Insufficient credits"}`,
			expectErr:  true,
			expectKind: KindPaymentRequired,
		},
		{
			name:       "forbidden",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 403,
			body:       `{"error": "Gated model"}`,
			expectErr:  true,
			expectKind: KindForbidden,
		},
		{
			name:       "model not found",
			model:      "BAAI/not-a-model",
			statusCode: 404,
			body:       `{"error": "Model not found"}`,
			expectErr:  true,
			expectKind: KindNotFound,
		},
		{
			name:       "unauthorized",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 401,
			body:       `{"error": "Invalid credentials"}`,
			expectErr:  true,
			expectKind: KindUnauthorized,
		},
		{
			name:       "server error maps to other",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 503,
			body:       `{"error": "Service unavailable"}`,
			expectErr:  true,
			expectKind: KindOther,
		},
		{
			name:       "empty response body",
			model:      "BAAI/bge-base-en-v1.5",
			statusCode: 200,
			body:       `[]`,
			expectErr:  true,
			expectKind: KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.AddResponse("POST", embedURL(tt.model), tt.statusCode, tt.body)
			e := createMockEmbedder(tt.model, transport)

			vec, err := e.EmbedQuery(context.Background(), "What is KYC?")
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := KindOf(err); got != tt.expectKind {
					t.Errorf("error kind = %v, want %v", got, tt.expectKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vec) != tt.expectDim {
				t.Fatalf("vector dim = %d, want %d", len(vec), tt.expectDim)
			}

			// Every successful embedding comes back unit-normalized.
			var sum float64
			for _, x := range vec {
				sum += float64(x) * float64(x)
			}
			if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
				t.Errorf("norm = %v, want 1", math.Sqrt(sum))
			}
		})
	}
}

func TestHFEmbedder_MissingToken(t *testing.T) {
	transport := NewMockTransport()
	e := NewHFEmbedder("", "BAAI/bge-base-en-v1.5", 4, testBaseURL)
	e.http = &http.Client{Transport: transport}

	_, err := e.EmbedQuery(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if KindOf(err) != KindConfiguration {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindConfiguration)
	}
	if len(transport.RequestBodies()) != 0 {
		t.Error("no request should be made without a token")
	}
}

func TestHFEmbedder_QueryFormatting(t *testing.T) {
	tests := []struct {
		name           string
		model          string
		query          string
		expectedInputs string
	}{
		{
			name:           "bge prefix applied before the call",
			model:          "BAAI/bge-base-en-v1.5",
			query:          "What is KYC?",
			expectedInputs: "Represent this sentence for searching relevant passages: What is KYC?",
		},
		{
			name:           "e5 prefix applied before the call",
			model:          "intfloat/e5-base-v2",
			query:          "What is KYC?",
			expectedInputs: "query: What is KYC?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.AddResponse("POST", embedURL(tt.model), 200, `[0.5, 0.5, 0.5, 0.5]`)
			e := createMockEmbedder(tt.model, transport)

			if _, err := e.EmbedQuery(context.Background(), tt.query); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			bodies := transport.RequestBodies()
			if len(bodies) != 1 {
				t.Fatalf("expected 1 request, got %d", len(bodies))
			}
			var payload struct {
				Inputs string `json:"inputs"`
			}
			if err := json.Unmarshal([]byte(bodies[0]), &payload); err != nil {
				t.Fatalf("bad request body: %v", err)
			}
			if payload.Inputs != tt.expectedInputs {
				t.Errorf("inputs = %q, want %q", payload.Inputs, tt.expectedInputs)
			}
		})
	}
}

func TestHFEmbedder_Defaults(t *testing.T) {
	e := NewHFEmbedder("key", "", 0, "")
	if e.Model() != "BAAI/bge-base-en-v1.5" {
		t.Errorf("default model = %q", e.Model())
	}
	if e.Dim() != 768 {
		t.Errorf("default dim = %d", e.Dim())
	}
	if e.baseURL != defaultHFBaseURL {
		t.Errorf("default base URL = %q", e.baseURL)
	}
}

func TestDecodeVector(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		expectLen int
		expectErr bool
	}{
		{name: "flat", body: `[1, 2, 3]`, expectLen: 3},
		{name: "batch of one", body: `[[1, 2, 3]]`, expectLen: 3},
		{name: "empty array", body: `[]`, expectErr: true},
		{name: "empty batch", body: `[[]]`, expectErr: true},
		{name: "garbage", body: `{"unexpected": true}`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := decodeVector([]byte(tt.body))
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vec) != tt.expectLen {
				t.Errorf("len = %d, want %d", len(vec), tt.expectLen)
			}
		})
	}
}
