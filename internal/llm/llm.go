// Package llm abstracts the completion backend the generation pipeline talks
// to. The only production implementation is an OpenAI-compatible chat
// completions client.
package llm

import "context"

// Completion is one model response plus its token accounting.
type Completion struct {
	Text       string
	TokensUsed int
}

// Client produces a completion for a system and user prompt pair.
type Client interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (*Completion, error)
}
