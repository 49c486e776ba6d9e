// Package scraper loads knowledge-base source pages: live fetches and
// saved section snapshots produced by a browser-based crawl.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
)

const userAgent = "Mozilla/5.0"

// FAQ is one expanded accordion question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Section is one crawled page snapshot. Text holds the cleaned page
// text; HTML, when present, allows structural re-chunking.
type Section struct {
	Section string `json:"section"`
	URL     string `json:"url"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	FAQs    []FAQ  `json:"faqs,omitempty"`
}

// Fetcher retrieves live pages over HTTP.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a page fetcher with a bounded request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		http: &http.Client{Timeout: 25 * time.Second},
	}
}

// FetchHTML downloads one page. SPA shells come back effectively empty;
// the caller should fall back to the snapshot's pre-rendered text.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CleanText strips page chrome and collapses the remaining text into a
// single whitespace-normalized string.
func CleanText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, svg, header, footer, nav").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// IsAppShell reports whether html looks like an unrendered single-page
// app shell: no headings, or an "enable javascript" notice up front.
// Such pages carry no indexable content and need a rendered snapshot.
func IsAppShell(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return true
	}
	head := strings.ToLower(CleanText(html))
	if len(head) > 600 {
		head = head[:600]
	}
	if strings.Contains(head, "enable javascript") {
		return true
	}
	return doc.Find("h1, h2, h3").Length() == 0
}

// LoadFile reads one snapshot file: a JSON array of sections, or a
// single raw HTML page.
func LoadFile(path string) ([]Section, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSnapshot(path, b)
}

// LoadDir walks a snapshot directory and loads every *.json and *.html
// file in it. Unreadable files are logged and skipped.
func LoadDir(root string) ([]Section, error) {
	var out []Section
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json", ".html", ".htm":
			default:
				return nil
			}
			secs, err := LoadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("skipping unreadable snapshot")
				return nil
			}
			out = append(out, secs...)
			return nil
		},
	})
	return out, err
}

func parseSnapshot(path string, b []byte) ([]Section, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return []Section{{
			Section: name,
			Text:    CleanText(string(b)),
			HTML:    string(b),
		}}, nil
	}

	var secs []Section
	if err := json.Unmarshal(b, &secs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return secs, nil
}
