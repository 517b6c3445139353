// Package llm provides the single call boundary to text completion models.
package llm

import (
	"context"
)

// CompletionClient defines the interface for chat completion transports.
// Use this interface for dependency injection to enable mocking in tests.
type CompletionClient interface {
	// Complete generates a chat completion for the prompt.
	Complete(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy CompletionClient at compile time.
var (
	_ CompletionClient = (*OpenAIClient)(nil)
	_ CompletionClient = (*AnthropicClient)(nil)
	_ CompletionClient = (*MockCompletionClient)(nil)
)
