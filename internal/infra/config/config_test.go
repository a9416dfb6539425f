// No t.Parallel() — env vars are process-global and not thread-safe.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvKeys = []string{
	envKeyConfigFile, envKeyGoogleAPIKey, envKeyLLMProvider, envKeyGeminiModel,
	envKeyGeminiBaseURL, envKeyOllamaBaseURL, envKeyOllamaChatModel, envKeyLLMTimeout,
	envKeyHTTPHost, envKeyHTTPPort, envKeySessionBackend, envKeySessionTTL, envKeySessionSecret,
}

// unsetEnv removes every config variable for the duration of the test.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k) //nolint:errcheck
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func missingDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t)

	cfg, err := load(missingDotEnv(t), "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg != Default() {
		t.Errorf("load() = %+v; want defaults %+v", cfg, Default())
	}
	if cfg.LLMProvider != "gemini" || cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("unexpected LLM defaults: %q / %q", cfg.LLMProvider, cfg.GeminiModel)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q; want 0.0.0.0:8080", cfg.Addr())
	}
	if cfg.LLMTimeout != 30*time.Second || cfg.SessionTTL != 12*time.Hour {
		t.Errorf("durations = %v / %v", cfg.LLMTimeout, cfg.SessionTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	unsetEnv(t)
	t.Setenv("GOOGLE_API_KEY", "k-123")
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")
	t.Setenv("OLLAMA_CHAT_MODEL", "llama3.1:8b")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_BACKEND", "sqlite")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := load(missingDotEnv(t), "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	want := Default()
	want.GoogleAPIKey = "k-123"
	want.LLMProvider = "ollama"
	want.OllamaBaseURL = "http://ollama.internal:11434"
	want.OllamaChatModel = "llama3.1:8b"
	want.LLMTimeout = 5 * time.Second
	want.HTTPHost = "127.0.0.1"
	want.HTTPPort = 9090
	want.SessionBackend = "sqlite"
	want.SessionTTL = 30 * time.Minute
	want.SessionSecret = "s3cret"
	if cfg != want {
		t.Errorf("load() = %+v\nwant %+v", cfg, want)
	}
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	for key, val := range map[string]string{
		"LLM_TIMEOUT": "soon",
		"SESSION_TTL": "12",
		"HTTP_PORT":   "eighty",
	} {
		t.Run(key, func(t *testing.T) {
			unsetEnv(t)
			t.Setenv(key, val)
			if _, err := load(missingDotEnv(t), ""); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("load() error = %v; want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	unsetEnv(t)
	dotenv := writeFile(t, ".env", "GOOGLE_API_KEY=from-dotenv\nGEMINI_MODEL=gemini-1.5-pro\n")
	t.Setenv("GEMINI_MODEL", "from-env")

	cfg, err := load(dotenv, "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.GoogleAPIKey != "from-dotenv" {
		t.Errorf("GoogleAPIKey = %q; want value from .env", cfg.GoogleAPIKey)
	}
	if cfg.GeminiModel != "from-env" {
		t.Errorf("GeminiModel = %q; real environment must win over .env", cfg.GeminiModel)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	unsetEnv(t)
	path := writeFile(t, "cleverq.yaml", `
llm_provider: ollama
ollama_chat_model: mistral
llm_timeout: 45s
http_port: 3000
session_backend: sqlite
session_ttl: 2h
`)
	t.Setenv("HTTP_PORT", "4000")

	cfg, err := load(missingDotEnv(t), path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.LLMProvider != "ollama" || cfg.OllamaChatModel != "mistral" {
		t.Errorf("provider = %q model = %q", cfg.LLMProvider, cfg.OllamaChatModel)
	}
	if cfg.LLMTimeout != 45*time.Second || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("durations = %v / %v", cfg.LLMTimeout, cfg.SessionTTL)
	}
	if cfg.HTTPPort != 4000 {
		t.Errorf("HTTPPort = %d; env should override file", cfg.HTTPPort)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("unset file keys should keep defaults, got %q", cfg.GeminiModel)
	}
}

func TestLoad_YAMLFromEnvPath(t *testing.T) {
	unsetEnv(t)
	path := writeFile(t, "cleverq.yaml", "session_backend: sqlite\n")
	t.Setenv("CLEVERQ_CONFIG", path)

	cfg, err := load(missingDotEnv(t), "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.SessionBackend != BackendSQLite {
		t.Errorf("SessionBackend = %q; want sqlite", cfg.SessionBackend)
	}
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	unsetEnv(t)
	path := writeFile(t, "cleverq.yaml", "gemini_modle: typo\n")

	if _, err := load(missingDotEnv(t), path); err == nil {
		t.Error("load() accepted an unknown YAML key")
	}
}

func TestLoad_YAMLMissingFile(t *testing.T) {
	unsetEnv(t)

	if _, err := load(missingDotEnv(t), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("load() accepted a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.GoogleAPIKey = "k"

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid gemini", func(*Config) {}, nil},
		{"missing key", func(c *Config) { c.GoogleAPIKey = "  " }, ErrMissingAPIKey},
		{"ollama needs no key", func(c *Config) { c.GoogleAPIKey = ""; c.LLMProvider = ProviderOllama }, nil},
		{"unknown provider", func(c *Config) { c.LLMProvider = "openai" }, ErrUnknownProvider},
		{"unknown backend", func(c *Config) { c.SessionBackend = "redis" }, ErrUnknownBackend},
		{"bad port", func(c *Config) { c.HTTPPort = 70000 }, ErrInvalidConfig},
		{"zero timeout", func(c *Config) { c.LLMTimeout = 0 }, ErrInvalidConfig},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v; want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestEnvOr_Present(t *testing.T) {
	t.Setenv("TEST_ENVOR_KEY", "custom-value")
	got := envOr("TEST_ENVOR_KEY", "fallback")
	if got != "custom-value" {
		t.Errorf("expected 'custom-value', got %q", got)
	}
}

func TestEnvOr_Absent(t *testing.T) {
	t.Setenv("TEST_ENVOR_MISSING", "")
	got := envOr("TEST_ENVOR_MISSING", "fallback")
	if got != "fallback" {
		t.Errorf("expected 'fallback', got %q", got)
	}
}
