package llm

import "context"

// Client is the interface the agent loop speaks to a model provider.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// tools carries the tool schema in provider wire format; nil means
	// the model must answer with plain text.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
