package main

import (
	"context"
	"log"
	"strings"

	"github.com/paydesk/assist/internal/ai"
	"github.com/paydesk/assist/internal/config"
	"github.com/paydesk/assist/internal/indexer"
	"github.com/paydesk/assist/internal/scraper"
	"github.com/paydesk/assist/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("assist-indexer", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	provider := strings.ToLower(cfg.EmbedProvider)
	log.Printf("using embedding provider: %s", provider)
	var embedConfig *ai.EmbedConfig
	switch provider {
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
		log.Fatalf("unsupported embedding provider: %s", provider)
	}

	ctx := context.Background()

	// Initialize store
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	embedder, err := ai.NewEmbedder(embedConfig)
	if err != nil {
		log.Fatal(err)
	}

	if embedder.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	if err := st.Migrate(ctx, embedder.Dim()); err != nil {
		log.Fatal(err)
	}

	var sections []scraper.Section
	if cfg.SectionsFile != "" {
		loaded, err := scraper.LoadFile(cfg.SectionsFile)
		if err != nil {
			log.Fatalf("load sections file: %v", err)
		}
		sections = append(sections, loaded...)
	}
	if cfg.SnapshotDir != "" {
		loaded, err := scraper.LoadDir(cfg.SnapshotDir)
		if err != nil {
			log.Fatalf("load snapshot dir: %v", err)
		}
		sections = append(sections, loaded...)
	}
	if len(sections) == 0 {
		log.Fatal("nothing to index: set sections-file or snapshot-dir")
	}
	log.Printf("loaded %d sections", len(sections))

	var fetcher indexer.PageFetcher
	if cfg.LiveFetch {
		fetcher = scraper.NewFetcher()
	}

	ix := indexer.New(st, embedder, fetcher)
	if err := ix.Run(ctx, sections); err != nil {
		log.Fatal(err)
	}
}
