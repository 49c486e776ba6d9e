// Package pipeline orchestrates one question through retrieval, prompt
// composition, and answer generation.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paydesk/assist/internal/ai"
	"github.com/paydesk/assist/internal/prompt"
	"github.com/paydesk/assist/pkg/models"
)

// State is the orchestration phase of a single request.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateComposing
	StateGenerating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateComposing:
		return "composing"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from one state to the next is a
// legal step. Requests advance strictly Idle -> Retrieving -> Composing
// -> Generating -> Done; Failed is reachable from any non-Idle state.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateIdle && from != StateDone && from != StateFailed
	}
	switch from {
	case StateIdle:
		return to == StateRetrieving
	case StateRetrieving:
		return to == StateComposing
	case StateComposing:
		return to == StateGenerating
	case StateGenerating:
		return to == StateDone
	default:
		return false
	}
}

// run tracks the state of one orchestrated request.
type run struct {
	state State
}

func (r *run) to(next State) {
	if !CanTransition(r.state, next) {
		panic(fmt.Sprintf("illegal transition %s -> %s", r.state, next))
	}
	r.state = next
}

// Searcher is the retrieval stage consumed by the orchestrator.
type Searcher interface {
	SemanticSearch(ctx context.Context, q string, k int) (models.SearchResult, error)
}

// Orchestrator sequences retrieval, composition, and generation for one
// request at a time. Each call is independent and carries no
// cross-request state, so calls may overlap freely.
type Orchestrator struct {
	Searcher  Searcher
	Generator ai.Generator
}

// New creates an Orchestrator over the given stages.
func New(searcher Searcher, generator ai.Generator) *Orchestrator {
	return &Orchestrator{Searcher: searcher, Generator: generator}
}

// Ask answers one question. Failures never surface as errors: a failed
// stage yields a Failed assistant turn whose text is the readable
// failure, so the conversation moves forward either way. A retrieval
// failure carries no citations; a generation failure keeps them, since
// the retrieved chunks are still valid sources.
func (o *Orchestrator) Ask(ctx context.Context, question string, k int) models.Turn {
	r := &run{state: StateIdle}

	r.to(StateRetrieving)
	res, err := o.Searcher.SemanticSearch(ctx, question, k)
	if err != nil {
		r.to(StateFailed)
		return models.Turn{
			Role:   models.RoleAssistant,
			Text:   fmt.Sprintf("Search failed: %v", err),
			Failed: true,
		}
	}

	r.to(StateComposing)
	p := prompt.BuildGroundedPrompt(question, res.Chunks)

	r.to(StateGenerating)
	start := time.Now()
	answer, err := o.Generator.Generate(ctx, p)
	generationMs := time.Since(start).Milliseconds()
	if err != nil {
		r.to(StateFailed)
		return models.Turn{
			Role:         models.RoleAssistant,
			Text:         fmt.Sprintf("Answer generation failed: %v", err),
			Citations:    res.Chunks,
			EmbeddingMs:  res.EmbeddingMs,
			SearchMs:     res.LatencyMs,
			GenerationMs: generationMs,
			Failed:       true,
		}
	}

	r.to(StateDone)
	return models.Turn{
		Role:         models.RoleAssistant,
		Text:         answer,
		Citations:    res.Chunks,
		EmbeddingMs:  res.EmbeddingMs,
		SearchMs:     res.LatencyMs,
		GenerationMs: generationMs,
	}
}

// Gate is a caller-side guard preventing a second request from starting
// while one is in flight for the same conversation. The pipeline itself
// needs no mutual exclusion; this exists so a display layer cannot
// interleave answers out of order.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire claims the gate, reporting false if a request is already
// in flight.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate for the next request.
func (g *Gate) Release() {
	g.busy.Store(false)
}
