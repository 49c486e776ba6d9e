// Package prompt assembles grounding prompts for answer generation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/paydesk/assist/pkg/models"
)

// BuildGroundedPrompt renders the question and the retrieved chunks
// into the generation prompt. Pure and deterministic: identical inputs
// always yield byte-identical output. Context block [i] holds the chunk
// at position i-1, and the rendered citations keep that mapping, which
// the presentation layer relies on when matching bracket numbers
// against the chunk list.
func BuildGroundedPrompt(question string, chunks []models.RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("You are a merchant-support assistant. Use ONLY the numbered context below to answer.\n\n")
	b.WriteString("Context:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Content)
		b.WriteString("Source: " + sourceLine(c) + "\n\n")
	}

	b.WriteString("Question: " + question + "\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("- Answer using only the context above. Do not use outside knowledge.\n")
	b.WriteString("- If the context does not contain the answer, say you don't have enough information.\n")
	b.WriteString("- Keep the answer to at most six sentences.\n")
	b.WriteString("- Cite supporting context inline with bracket numbers such as [1] matching the numbered blocks.\n\n")
	b.WriteString("Answer:")

	return b.String()
}

// sourceLine renders a chunk's provenance: the URL (possibly empty)
// plus the section name in square brackets when present.
func sourceLine(c models.RetrievedChunk) string {
	s := c.SourceURL
	if c.Section != "" {
		s += " [" + c.Section + "]"
	}
	return s
}
