// Package llm provides the language-model providers the agent talks to.
//
// Information Hiding:
// - API client initialization and authentication
// - Request/response format conversion
// - How each vendor constrains output to a JSON schema
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider is a chat-completion backend. The agent never relies on native
// function calling; tool requests travel as JSON in the reply text.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithFormat sends a chat completion request with response format.
	// Providers that cannot enforce a schema fold it into the instructions.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error)
}
