package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paydesk/assist/internal/ai"
	"github.com/paydesk/assist/internal/auth"
	"github.com/paydesk/assist/internal/config"
	"github.com/paydesk/assist/internal/pipeline"
	"github.com/paydesk/assist/internal/search"
	"github.com/paydesk/assist/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"
)

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("assist-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("embed_provider", cfg.EmbedProvider).Str("gen_provider", cfg.GenProvider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting assist api")

	var embedConfig *ai.EmbedConfig
	switch strings.ToLower(cfg.EmbedProvider) {
	case "huggingface":
		embedConfig = &ai.EmbedConfig{
			Provider:      ai.ProviderHuggingFace,
			APIKey:        cfg.EmbedAPIKey,
			Model:         cfg.EmbedModel,
			FallbackModel: cfg.EmbedFallbackModel,
			Dim:           cfg.Dim,
			BaseURL:       cfg.EmbedBaseURL,
		}
	case "stub":
		embedConfig = &ai.EmbedConfig{
			Provider: ai.ProviderStub,
			Model:    cfg.EmbedModel,
			Dim:      cfg.Dim,
		}
	default:
		log.Fatalf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}

	var genConfig *ai.GenConfig
	switch strings.ToLower(cfg.GenProvider) {
	case "gemini":
		genConfig = &ai.GenConfig{
			Provider:  ai.ProviderGemini,
			APIKey:    cfg.GenAPIKey,
			Model:     cfg.GenModel,
			MaxTokens: int32(cfg.GenMaxTokens),
		}
	case "stub":
		genConfig = &ai.GenConfig{Provider: ai.ProviderStub}
	default:
		log.Fatalf("unsupported generation provider: %s", cfg.GenProvider)
	}

	// Initialize auth with configuration
	auth.InitializeAuth(cfg.Auth.JwtSecret, cfg.Auth.Enabled)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	embedder, err := ai.NewEmbedder(embedConfig)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	generator, err := ai.NewGenerator(ctx, genConfig)
	if err != nil {
		log.Fatalf("Failed to create generation client: %v", err)
	}

	// Use the embedder's dimension for database migration
	dim := embedder.Dim()
	logger.Info().Int("embedding_dim", dim).Str("embed_model", embedder.Model()).Msg("embedding client initialized")

	if err := st.Migrate(ctx, dim); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	svc := search.NewService(embedder, st)
	orch := pipeline.New(svc, generator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	// Auth status endpoint (always available)
	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]bool{"enabled": auth.IsAuthEnabled()})
		if err != nil {
			http.Error(w, "Failed to encode response", 500)
		}
	})

	if auth.IsAuthEnabled() {
		log.Println("Authentication is ENABLED")
	} else {
		log.Println("Authentication is DISABLED - running in open mode")
	}

	mux.HandleFunc("/topics", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		topics, err := st.GetTopics(ctx)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(topics); err != nil {
			http.Error(w, "Failed to encode topics", 500)
		}
	}))
	mux.HandleFunc("/sources", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sources, err := st.GetSources(ctx)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sources); err != nil {
			http.Error(w, "Failed to encode sources", 500)
		}
	}))
	mux.HandleFunc("/search", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query().Get("q")
		k := cfg.TopK
		if v := r.URL.Query().Get("k"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				k = n
			}
		}
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		opt := store.QueryOpts{
			SourceURL:   r.URL.Query().Get("source"),
			Topic:       r.URL.Query().Get("topic"),
			ContentType: r.URL.Query().Get("content_type"),
		}
		if v := r.URL.Query().Get("min_similarity"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				opt.MinSimilarity = f
			}
		}
		res, err := svc.Search(ctx, q, k, opt)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		for i := range res.Chunks {
			if math.IsNaN(res.Chunks[i].Similarity) || math.IsInf(res.Chunks[i].Similarity, 0) {
				res.Chunks[i].Similarity = 0
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Printf("failed to encode response: %v", err)
		}

		hlog.FromRequest(r).Info().Str("path", "/search").Str("q", q).Int("k", k).Dur("dur", time.Since(start)).Msg("served")
	}))
	mux.HandleFunc("/ask", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start := time.Now()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			http.Error(w, "missing question", http.StatusBadRequest)
			return
		}
		k := req.K
		if k <= 0 {
			k = cfg.TopK
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		turn := orch.Ask(ctx, req.Question, k)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(turn); err != nil {
			log.Printf("failed to encode response: %v", err)
		}

		hlog.FromRequest(r).Info().Str("path", "/ask").Int("k", k).Bool("failed", turn.Failed).Dur("dur", time.Since(start)).Msg("served")
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}
