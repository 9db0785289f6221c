// Package llm provides generative backend clients for the suggestion engine.
// All providers expose single-string completion bounded by a request timeout;
// the suggestion engine wraps calls in a single circuit breaker so a failing
// backend degrades to the rule-based fallback instead of blocking the caller.
package llm

import "context"

// TextGenerator is the interface for generative text completion.
// The suggestion engine uses single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}
