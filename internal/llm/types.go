// Package llm provides chat-completion client implementations.
package llm

import (
	"context"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result messages
	Name       string     `json:"name,omitempty"`         // tool name on tool-result messages
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the provider-neutral response from a chat completion.
// Reasoning is populated only when the provider exposes a structured
// reasoning field; providers that inline it into the content stream are
// handled downstream by the think-tag extractor.
type ChatResponse struct {
	Model        string
	Message      Message
	Reasoning    string
	FinishReason string

	InputTokens  int
	OutputTokens int
}

// MaybeReasoning returns the structured reasoning text for this
// response, if the provider exposed one.
func (r *ChatResponse) MaybeReasoning() (string, bool) {
	if r == nil || r.Reasoning == "" {
		return "", false
	}
	return r.Reasoning, true
}

// Client is the interface chat-completion providers implement.
type Client interface {
	// Chat sends a completion request and returns the response.
	// Tools are OpenAI-style function specs; pass nil to disable them.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)
}
