// Gemini generative-language REST adapter.
// Endpoints used:
//   - POST /v1beta/models/{model}:generateContent — non-streaming generation
//   - GET  /v1beta/models/{model}                 — health check (model metadata)
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultGeminiBaseURL is the public generative-language endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultGeminiModel replaces the retired "gemini-pro" alias.
	DefaultGeminiModel = "gemini-1.5-flash"

	headerGoogAPIKey = "x-goog-api-key"
	maxErrorBody     = 64 << 10
)

// ErrEmptyCompletion is returned when the model answers with no text at all.
var ErrEmptyCompletion = errors.New("model returned no text")

// GeminiProvider implements LLMProvider against the Gemini REST API.
type GeminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a GeminiProvider. Empty baseURL and model select the
// public endpoint and DefaultGeminiModel; a non-positive timeout selects DefaultTimeout.
func NewGeminiProvider(baseURL, apiKey, model string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ─── internal Gemini JSON types ──────────────────────────────────────────────

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ─── LLMProvider implementation ─────────────────────────────────────────────

// ChatCompletion calls generateContent and joins the text parts of the first candidate.
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return nil, err
	}

	path := "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	respBody, err := p.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer respBody.Close() //nolint:errcheck

	var gr geminiResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&gr); decodeErr != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", decodeErr)
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: prompt blocked: %s", gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}

	cand := gr.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		if cand.FinishReason != "" && cand.FinishReason != "STOP" {
			return nil, fmt.Errorf("gemini: %w (finish reason %s)", ErrEmptyCompletion, cand.FinishReason)
		}
		return nil, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}

	return &ChatResponse{
		Content:    sb.String(),
		StopReason: cand.FinishReason,
		Tokens:     gr.UsageMetadata.TotalTokenCount,
	}, nil
}

// buildGeminiRequest maps roles onto Gemini's user/model turns and lifts system
// messages into systemInstruction.
func buildGeminiRequest(req ChatRequest) geminiRequest {
	gr := geminiRequest{Contents: make([]geminiContent, 0, len(req.Messages))}
	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, geminiPart{Text: m.Content})
		case RoleAssistant:
			gr.Contents = append(gr.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			gr.Contents = append(gr.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		gr.SystemInstruction = &geminiContent{Parts: system}
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		cfg := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature != 0 {
			t := req.Temperature
			cfg.Temperature = &t
		}
		gr.GenerationConfig = cfg
	}
	return gr
}

// ModelInfo returns static metadata for this provider/model.
func (p *GeminiProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.model,
		Provider:  "gemini",
		Version:   "v1beta",
		MaxTokens: 1 << 20,
	}
}

// HealthCheck fetches the model resource; it fails on a bad key or unknown model.
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	body, err := p.do(ctx, http.MethodGet, "/v1beta/models/"+url.PathEscape(p.model), nil)
	if err != nil {
		return fmt.Errorf("gemini healthcheck: %w", err)
	}
	return body.Close()
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// do sends an authenticated request and returns the body of a 2xx response.
// Non-2xx responses are turned into errors carrying the API's error message.
func (p *GeminiProvider) do(ctx context.Context, method, path string, body []byte) (io.ReadCloser, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("gemini %s %s: build request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}
	req.Header.Set(headerGoogAPIKey, p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		var apiErr geminiErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
