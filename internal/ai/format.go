package ai

import (
	"math"
	"strings"
)

// FormatQuery applies the model family's query-side input convention.
// bge models expect an instruction prefix, e5 models expect "query: ",
// everything else takes the raw text. Applied once per call, to the raw
// query, re-evaluated per model when falling back.
func FormatQuery(model, query string) string {
	lm := strings.ToLower(model)
	switch {
	case strings.Contains(lm, "bge"):
		return "Represent this sentence for searching relevant passages: " + query
	case strings.Contains(lm, "e5"):
		return "query: " + query
	default:
		return query
	}
}

// FormatPassage applies the model family's document-side convention.
// Only e5 models prefix stored passages; bge passages are embedded raw.
func FormatPassage(model, text string) string {
	if strings.Contains(strings.ToLower(model), "e5") {
		return "passage: " + text
	}
	return text
}

// Normalize scales v to unit Euclidean norm in place and returns it.
// The zero vector is returned unchanged rather than dividing by zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
