// Package llm provides the optional local language-model backend behind
// the OpenAI-compatible chat completions endpoint: a mock for development,
// an Ollama HTTP client, and an exec adapter for an arbitrary local CLI.
package llm

import (
	"context"
	"time"
)

// Message is one turn of a chat conversation, mirroring the OpenAI
// chat-completions message shape (role + content only; tool call framing
// is handled by the HTTP layer).
type Message struct {
	Role    string
	Content string
}

// ToolSpec is one function tool offered to the model, passed through from
// the HTTP request's "tools" array without interpretation.
type ToolSpec struct {
	Name        string
	Description string
	ParamsJSON  string
}

// Request describes one chat completion call.
type Request struct {
	SessionID         string
	Model             string
	Messages          []Message
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	AdditionalContext map[string]string
	Tools             []ToolSpec
	TraceID           string
}

// ToolCall is emitted by a Chunk instead of Content when the model elects
// to call a function tool rather than produce text.
type ToolCall struct {
	Name          string
	ArgumentsJSON string
}

// Chunk represents one piece of streamed model output. Partial is true for
// every chunk except the last. A chunk carries either Content or ToolCall,
// never both.
type Chunk struct {
	SessionID        string
	Content          string
	ToolCall         *ToolCall
	Partial          bool
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	TraceID          string
}

// Generator defines a pluggable LLM backend. consumer is called once per
// chunk, in order; Generate returns once the final chunk has been
// delivered or an error occurs.
type Generator interface {
	Generate(ctx context.Context, req Request, consumer func(Chunk) error) error
}

// ModelLoader is implemented by backends that need to warm a model before
// first use (e.g. confirming Ollama has it loaded into memory). Backends
// with no such step, like the mock and exec adapters, simply don't
// implement it.
type ModelLoader interface {
	EnsureLoaded(ctx context.Context, model string) error
}
