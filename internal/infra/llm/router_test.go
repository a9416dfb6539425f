// Unit tests for Router.
// Uses stub LLMProvider implementations — no HTTP needed.
package llm

import (
	"context"
	"strings"
	"testing"
)

// stubProvider is a minimal LLMProvider stub for router testing.
type stubProvider struct{ id string }

func (s *stubProvider) ChatCompletion(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "stub"}, nil
}
func (s *stubProvider) ModelInfo() ModelMeta                { return ModelMeta{ID: s.id, Provider: "stub"} }
func (s *stubProvider) HealthCheck(_ context.Context) error { return nil }

// ============================================================================
// Router tests
// ============================================================================

func TestRouter_Route_ReturnsDefaultProvider(t *testing.T) {
	t.Parallel()

	gemini := &stubProvider{id: "gemini-1.5-flash"}
	r := NewRouter(map[string]LLMProvider{"gemini": gemini, "ollama": &stubProvider{id: "llama3.2:3b"}}, "gemini")

	p, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if p.ModelInfo().ID != "gemini-1.5-flash" {
		t.Errorf("unexpected provider returned: %v", p.ModelInfo())
	}
	if r.Default() != "gemini" {
		t.Errorf("Default() = %q; want gemini", r.Default())
	}
}

func TestRouter_Route_UnknownDefaultProvider_ReturnsError(t *testing.T) {
	t.Parallel()

	ollama := &stubProvider{id: "llama3.2:3b"}
	r := NewRouter(map[string]LLMProvider{"ollama": ollama}, "gemini")

	_, err := r.Route(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown defaultProvider, got nil")
	}
	if !strings.Contains(err.Error(), "[ollama]") {
		t.Errorf("error should list available providers, got %v", err)
	}
}

func TestRouter_Route_EmptyProviders_ReturnsError(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]LLMProvider{}, "gemini")
	_, err := r.Route(context.Background())
	if err == nil {
		t.Error("expected error for empty providers map, got nil")
	}
}

func TestRouter_NewRouter_CopiesProviderMap(t *testing.T) {
	t.Parallel()

	providers := map[string]LLMProvider{"gemini": &stubProvider{id: "a"}}
	r := NewRouter(providers, "gemini")
	providers["gemini"] = &stubProvider{id: "b"}

	p, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if p.ModelInfo().ID != "a" {
		t.Errorf("router saw caller mutation: got %q", p.ModelInfo().ID)
	}
}

func TestRouter_RegisterAndRoute_NewProvider(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]LLMProvider{}, "ollama")
	ollama := &stubProvider{id: "llama3.2:3b"}
	r.Register("ollama", ollama)

	p, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route after Register failed: %v", err)
	}
	if p.ModelInfo().ID != "llama3.2:3b" {
		t.Errorf("expected llama3.2:3b, got %q", p.ModelInfo().ID)
	}
}
