// Package llm provides the model client used by the agent loop.
package llm

import (
	"log/slog"
	"time"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents one turn in a conversation.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall is a model-issued request to invoke a named tool.
//
// Arguments is kept as the raw JSON text exactly as the provider sent it.
// The dispatcher parses it at execution time; a parse failure degrades to
// an empty argument set rather than losing the call's correlation id.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the provider-neutral response to one chat request.
// Wire format conversion happens at the provider boundary (openai.go).
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	// Token usage as reported by the provider (zero when absent).
	InputTokens  int
	OutputTokens int
}
