package suggest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/echovoice/echovoice/internal/llm"
	"github.com/echovoice/echovoice/pkg/types"
)

var (
	errUnexpectedResult  = errors.New("backend returned a non-string result")
	errTooFewSuggestions = errors.New("backend returned fewer than four usable suggestions")
)

// Suggestion sources reported alongside every result set.
const (
	SourceGenerative = "generative"
	SourceFallback   = "fallback"
)

// Engine produces suggestion sets for context snapshots. The generative
// backend is the primary path; any failure there (timeout, open circuit,
// unparseable reply, too few valid phrases) falls through to the rule tables.
// Suggest therefore never returns an error.
type Engine struct {
	generator llm.TextGenerator
	breaker   *llm.CircuitBreaker
	now       func() time.Time
}

// NewEngine creates a suggestion engine. generator may be nil, in which case
// every request is served by the rule-based fallback.
func NewEngine(generator llm.TextGenerator) *Engine {
	return &Engine{
		generator: generator,
		breaker:   llm.NewCircuitBreaker(),
		now:       time.Now,
	}
}

// Suggest returns exactly four suggestions for the given context, along with
// the source that produced them. The generative path is only attempted when
// the context carries at least an emotion or a location; a near-empty context
// gives the model nothing to work with and the rule tables do better.
func (e *Engine) Suggest(ctx context.Context, c types.Context) ([]types.Suggestion, string) {
	if e.generator != nil && (c.Emotion != "" || c.LocationLabel != "") {
		if suggestions, err := e.generate(ctx, c); err == nil {
			return suggestions, SourceGenerative
		} else {
			log.Printf("WARNING: generative suggestions unavailable, using fallback: %v", err)
		}
	}

	return FallbackSuggestions(c, e.now()), SourceFallback
}

// BreakerState exposes the circuit breaker state for health reporting.
func (e *Engine) BreakerState() string {
	return e.breaker.State()
}

// generate runs the primary path: prompt the backend through the circuit
// breaker, parse the reply tolerantly, and accept the batch only when it
// yields at least four valid suggestions after finalization.
func (e *Engine) generate(ctx context.Context, c types.Context) ([]types.Suggestion, error) {
	prompt := BuildPrompt(c)

	result, err := e.breaker.Execute(ctx, func() (interface{}, error) {
		return e.generator.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	raw, ok := result.(string)
	if !ok {
		return nil, errUnexpectedResult
	}

	parsed, err := ParseSuggestionResponse(raw)
	if err != nil {
		return nil, err
	}

	// Count unique phrases before finalizing: padding a generative batch would
	// mix registers, so an under-delivering model falls back entirely.
	unique := make(map[string]bool, len(parsed))
	for _, s := range parsed {
		unique[s.Phrase] = true
	}
	if len(unique) < SuggestionCount {
		return nil, errTooFewSuggestions
	}
	return Finalize(parsed), nil
}
