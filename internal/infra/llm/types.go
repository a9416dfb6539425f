package llm

import "time"

// DefaultTimeout bounds a single provider HTTP call when the caller sets none.
const DefaultTimeout = 30 * time.Second

// Message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // RoleSystem | RoleUser | RoleAssistant
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string // The assistant message text.
	StopReason string // provider-specific, e.g. "stop" or "STOP"
	Tokens     int    // Total tokens consumed (prompt + completion).
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "gemini-1.5-flash", "llama3.2:3b"
	Provider  string // e.g. "gemini", "ollama"
	Version   string
	MaxTokens int // Maximum context window size.
}

// UserPrompt wraps a single question as a one-message request.
func UserPrompt(text string) ChatRequest {
	return ChatRequest{Messages: []Message{{Role: RoleUser, Content: text}}}
}
