// Package chunker segments page content into knowledge-base chunks.
package chunker

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chunking methods recorded on each stored chunk.
const (
	MethodStructural = "structural"
	MethodFAQ        = "faq"
	MethodFixed      = "fixed"
)

// Chunk is one segment of page content ready for embedding.
type Chunk struct {
	Text       string
	TokenCount int
	Method     string
}

// stripSelector removes page chrome that carries no answerable content.
const stripSelector = "script, style, noscript, svg, header, footer, nav"

// FromHTML produces structural chunks that keep heading hierarchy: each
// block of paragraphs and list items is prefixed with its
// "H1 > H2 > H3" heading path, so a chunk stays meaningful out of
// context. Empty blocks are dropped.
func FromHTML(html string) ([]Chunk, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find(stripSelector).Remove()

	headings := map[int]string{}
	var buf []string
	var out []Chunk

	flush := func() {
		if len(buf) == 0 {
			return
		}
		var path []string
		for lvl := 1; lvl <= 3; lvl++ {
			if headings[lvl] != "" {
				path = append(path, headings[lvl])
			}
		}
		text := strings.Join(buf, " ")
		if len(path) > 0 {
			text = strings.Join(path, " > ") + "\n" + text
		}
		buf = nil
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		out = append(out, Chunk{
			Text:       text,
			TokenCount: EstimateTokens(text),
			Method:     MethodStructural,
		})
	}

	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		txt := collapse(sel.Text())
		if txt == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1", "h2", "h3":
			flush()
			lvl := int(goquery.NodeName(sel)[1] - '0')
			headings[lvl] = txt
			for l := lvl + 1; l <= 3; l++ {
				headings[l] = ""
			}
		default:
			buf = append(buf, txt)
		}
	})
	flush()

	return out, nil
}

// FromFAQ renders one expanded question/answer pair as a single chunk.
func FromFAQ(question, answer string) Chunk {
	text := "Q: " + collapse(question) + "\nA: " + collapse(answer)
	return Chunk{
		Text:       text,
		TokenCount: EstimateTokens(text),
		Method:     MethodFAQ,
	}
}

// FromText windows plain pre-extracted text into fixed-size chunks, for
// snapshots where no HTML structure survived.
func FromText(text string, windowTokens int) []Chunk {
	if windowTokens <= 0 {
		windowTokens = 256
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	// EstimateTokens assumes ~4 tokens per 3 words.
	windowWords := windowTokens * 3 / 4
	if windowWords < 1 {
		windowWords = 1
	}

	var out []Chunk
	for start := 0; start < len(words); start += windowWords {
		end := start + windowWords
		if end > len(words) {
			end = len(words)
		}
		t := strings.Join(words[start:end], " ")
		out = append(out, Chunk{
			Text:       t,
			TokenCount: EstimateTokens(t),
			Method:     MethodFixed,
		})
	}
	return out
}

// EstimateTokens approximates a subword token count from whitespace
// words. Close enough for sizing windows and stats; nothing downstream
// requires an exact tokenizer.
func EstimateTokens(s string) int {
	n := len(strings.Fields(s))
	return n + n/3
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
