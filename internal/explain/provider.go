// Package explain generates answer explanations for drill questions using
// an LLM provider. Providers are optional: the app works fully without one,
// and question files may carry authored explanations that take precedence.
package explain

import (
	"context"
	"encoding/json"
)

// Provider is the LLM abstraction explanations are generated through.
type Provider interface {
	// Generate sends a prompt and returns structured JSON. When the
	// request carries a Schema, the response Content conforms to it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one generation call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation. Explanation generation is single-turn,
	// so this is one user message in practice.
	Messages []Message

	// Schema, when set, is the JSON Schema the response must conform to
	// and selects the provider's native structured output mechanism.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0 to 1.0.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names and defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case.
	Name string

	// Description guides the model.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response is the model's output.
type Response struct {
	// Content is the generated output: validated JSON when a Schema was
	// requested, raw text otherwise.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
