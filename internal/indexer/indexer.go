// Package indexer embeds crawled sections into the chunk store.
package indexer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/paydesk/assist/internal/ai"
	"github.com/paydesk/assist/internal/chunker"
	"github.com/paydesk/assist/internal/scraper"
	"github.com/paydesk/assist/internal/store"
	"github.com/paydesk/assist/pkg/models"
)

// PageFetcher re-fetches live pages when a snapshot has no HTML.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Indexer turns crawled sections into embedded chunks.
type Indexer struct {
	Store    store.ChunkStore
	Embedder ai.Embedder
	Fetcher  PageFetcher // optional; nil disables live re-fetching
}

// New creates a new Indexer instance.
func New(s store.ChunkStore, embedder ai.Embedder, fetcher PageFetcher) *Indexer {
	return &Indexer{
		Store:    s,
		Embedder: embedder,
		Fetcher:  fetcher,
	}
}

// hashContent returns the SHA-1 hash of the given content as a hex string.
func hashContent(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// Run chunks and embeds all sections with a bounded worker pool.
func (ix *Indexer) Run(ctx context.Context, sections []scraper.Section) error {
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8 // keep the embedding API happy
	}

	log.Info().Int("workers", numWorkers).Int("sections", len(sections)).Msg("starting ingestion")

	workChan := make(chan scraper.Section, numWorkers*2)
	errorChan := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := range workChan {
				if err := ix.processSection(ctx, sec); err != nil {
					select {
					case errorChan <- err:
					default:
						log.Error().Err(err).Str("section", sec.Section).Msg("worker processing error")
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(errorChan)
	}()

	for _, sec := range sections {
		select {
		case workChan <- sec:
		case <-ctx.Done():
			close(workChan)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(workChan)
	wg.Wait()

	select {
	case err := <-errorChan:
		if err != nil {
			return err
		}
	default:
	}
	return nil
}

// processSection chunks one section and upserts every chunk, skipping
// content that is already stored with an embedding.
func (ix *Indexer) processSection(ctx context.Context, sec scraper.Section) error {
	chunks := ix.chunkSection(ctx, sec)

	for _, ch := range chunks {
		hash := hashContent(sec.URL + "\x00" + ch.Text)

		meta, found, err := ix.Store.GetChunkMeta(ctx, hash)
		if err != nil {
			return err
		}
		if found && meta.HasEmbedding {
			log.Debug().Str("section", sec.Section).Str("hash", hash).Msg("chunk unchanged, skipping")
			continue
		}

		vec, err := ix.Embedder.EmbedPassage(ctx, ch.Text)
		if err != nil {
			log.Warn().Err(err).Str("section", sec.Section).Msg("embedding failed, storing without vector")
			vec = nil
		}

		contentType := "page"
		if ch.Method == chunker.MethodFAQ {
			contentType = "faq"
		}

		m := models.Chunk{
			Content:     ch.Text,
			SourceURL:   sec.URL,
			Section:     sec.Section,
			Topic:       topicFor(sec.Section),
			ContentType: contentType,
			TokenCount:  ch.TokenCount,
			ChunkMethod: ch.Method,
			Metadata:    map[string]any{"embed_model": ix.Embedder.Model()},
		}
		log.Info().
			Str("section", sec.Section).
			Str("method", ch.Method).
			Int("tokens", ch.TokenCount).
			Bool("embedded", vec != nil).
			Msg("indexing chunk")
		if err := ix.Store.UpsertChunk(ctx, m, vec, hash); err != nil {
			log.Error().Err(err).Str("section", sec.Section).Msg("upsert failed")
		}
	}
	return nil
}

// chunkSection picks the best available representation: snapshot HTML,
// then a live fetch, then the snapshot's pre-rendered text windows.
// FAQ pairs always become their own chunks.
func (ix *Indexer) chunkSection(ctx context.Context, sec scraper.Section) []chunker.Chunk {
	var chunks []chunker.Chunk

	html := sec.HTML
	if html == "" && ix.Fetcher != nil && sec.URL != "" {
		fetched, err := ix.Fetcher.FetchHTML(ctx, sec.URL)
		if err != nil {
			log.Warn().Err(err).Str("url", sec.URL).Msg("live fetch failed, using snapshot text")
		} else if scraper.IsAppShell(fetched) {
			log.Debug().Str("url", sec.URL).Msg("live page is an app shell, using snapshot text")
		} else {
			html = fetched
		}
	}

	if html != "" {
		if c, err := chunker.FromHTML(html); err == nil && len(c) > 0 {
			chunks = c
		}
	}
	if chunks == nil && strings.TrimSpace(sec.Text) != "" {
		chunks = chunker.FromText(sec.Text, 256)
	}

	for _, f := range sec.FAQs {
		chunks = append(chunks, chunker.FromFAQ(f.Question, f.Answer))
	}
	return chunks
}

// topicFor derives a stable topic tag from a section label.
func topicFor(section string) string {
	t := strings.ToLower(strings.TrimSpace(section))
	t = strings.ReplaceAll(t, "&", "and")
	return strings.Join(strings.Fields(t), "-")
}
