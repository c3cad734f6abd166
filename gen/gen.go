// Package gen provides a provider-neutral interface to the external text
// generation service. Implementations live in subpackages (openai, anthropic,
// ollama); callers must treat any structured content a provider returns as
// untrusted and recover from parse failures.
package gen

import (
	"context"
)

// PromptKind tells a provider what shape of output the caller expects.
type PromptKind string

const (
	// KindThemes expects a JSON array matching the theme schema.
	KindThemes PromptKind = "themes"
	// KindSummary expects plain narrative text.
	KindSummary PromptKind = "summary"
	// KindReply expects conversational reply text.
	KindReply PromptKind = "reply"
)

// Request is a single generation call.
type Request struct {
	Kind        PromptKind
	System      string
	Prompt      string
	UserContext string // optional, appended to the system prompt
	MaxTokens   int
	Temperature *float64 // optional temperature override
}

// Result is the provider's response.
type Result struct {
	Content string
}

// Generator produces text from prompts. Implementations handle
// provider-specific details internally.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}
