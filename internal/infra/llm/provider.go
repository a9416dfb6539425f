// Package llm is the model collaborator behind the chat controller.
// Vendor adapters (Gemini, Ollama) implement LLMProvider so the controller
// never depends on a specific generative-language API.
package llm

import "context"

// LLMProvider is the model-agnostic interface for answer generation.
// Streaming is deliberately absent: answers are rendered whole.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
