// Package llm provides a provider-agnostic chat client used by the label
// suggestion service.
package llm

import "context"

// Client defines the single chat operation the suggestion service needs.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// Complete generates a chat completion for the prompt under the given
	// system message.
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)

	// Model returns the configured model name.
	Model() string
}
