// Package config loads runtime configuration from an optional .env file, an
// optional YAML file and environment variables, in that order of precedence
// (later wins). All fields except the Gemini API key have working defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	// DotEnvFile is read from the working directory when present.
	DotEnvFile = ".env"
)

var (
	ErrMissingAPIKey   = errors.New("GOOGLE_API_KEY is not set")
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrUnknownBackend  = errors.New("unknown session backend")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// Config holds runtime configuration for CleverQ.
type Config struct {
	// LLM
	GoogleAPIKey    string        `yaml:"google_api_key"`    // GOOGLE_API_KEY — required for gemini
	LLMProvider     string        `yaml:"llm_provider"`      // LLM_PROVIDER — default: "gemini"
	GeminiModel     string        `yaml:"gemini_model"`      // GEMINI_MODEL — default: "gemini-1.5-flash"
	GeminiBaseURL   string        `yaml:"gemini_base_url"`   // GEMINI_BASE_URL
	OllamaBaseURL   string        `yaml:"ollama_base_url"`   // OLLAMA_BASE_URL — default: "http://localhost:11434"
	OllamaChatModel string        `yaml:"ollama_chat_model"` // OLLAMA_CHAT_MODEL — default: "llama3.2:3b"
	LLMTimeout      time.Duration `yaml:"llm_timeout"`       // LLM_TIMEOUT — default: 30s

	// HTTP
	HTTPHost string `yaml:"http_host"` // HTTP_HOST — default: "0.0.0.0"
	HTTPPort int    `yaml:"http_port"` // HTTP_PORT — default: 8080

	// Sessions
	SessionBackend string        `yaml:"session_backend"` // SESSION_BACKEND — default: "memory"
	SessionTTL     time.Duration `yaml:"session_ttl"`     // SESSION_TTL — default: 12h
	SessionSecret  string        `yaml:"session_secret"`  // SESSION_SECRET — random per process when empty
}

const (
	envKeyConfigFile      = "CLEVERQ_CONFIG"
	envKeyGoogleAPIKey    = "GOOGLE_API_KEY"
	envKeyLLMProvider     = "LLM_PROVIDER"
	envKeyGeminiModel     = "GEMINI_MODEL"
	envKeyGeminiBaseURL   = "GEMINI_BASE_URL"
	envKeyOllamaBaseURL   = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel = "OLLAMA_CHAT_MODEL"
	envKeyLLMTimeout      = "LLM_TIMEOUT"
	envKeyHTTPHost        = "HTTP_HOST"
	envKeyHTTPPort        = "HTTP_PORT"
	envKeySessionBackend  = "SESSION_BACKEND"
	envKeySessionTTL      = "SESSION_TTL"
	envKeySessionSecret   = "SESSION_SECRET"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LLMProvider:     ProviderGemini,
		GeminiModel:     "gemini-1.5-flash",
		GeminiBaseURL:   "https://generativelanguage.googleapis.com",
		OllamaBaseURL:   "http://localhost:11434",
		OllamaChatModel: "llama3.2:3b",
		LLMTimeout:      30 * time.Second,
		HTTPHost:        "0.0.0.0",
		HTTPPort:        8080,
		SessionBackend:  BackendMemory,
		SessionTTL:      12 * time.Hour,
	}
}

// Load reads .env from the working directory, then the YAML file at path
// (or $CLEVERQ_CONFIG when path is empty), then environment overrides.
// The result is not validated; call Validate before use.
func Load(path string) (Config, error) {
	return load(DotEnvFile, path)
}

func load(dotenvPath, path string) (Config, error) {
	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", dotenvPath, err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(envKeyConfigFile)
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.GoogleAPIKey = envOr(envKeyGoogleAPIKey, cfg.GoogleAPIKey)
	cfg.LLMProvider = strings.ToLower(envOr(envKeyLLMProvider, cfg.LLMProvider))
	cfg.GeminiModel = envOr(envKeyGeminiModel, cfg.GeminiModel)
	cfg.GeminiBaseURL = envOr(envKeyGeminiBaseURL, cfg.GeminiBaseURL)
	cfg.OllamaBaseURL = envOr(envKeyOllamaBaseURL, cfg.OllamaBaseURL)
	cfg.OllamaChatModel = envOr(envKeyOllamaChatModel, cfg.OllamaChatModel)
	cfg.HTTPHost = envOr(envKeyHTTPHost, cfg.HTTPHost)
	cfg.SessionBackend = strings.ToLower(envOr(envKeySessionBackend, cfg.SessionBackend))
	cfg.SessionSecret = envOr(envKeySessionSecret, cfg.SessionSecret)

	var err error
	if cfg.LLMTimeout, err = durationOr(envKeyLLMTimeout, cfg.LLMTimeout); err != nil {
		return err
	}
	if cfg.SessionTTL, err = durationOr(envKeySessionTTL, cfg.SessionTTL); err != nil {
		return err
	}
	if v := os.Getenv(envKeyHTTPPort); v != "" {
		port, convErr := strconv.Atoi(v)
		if convErr != nil {
			return fmt.Errorf("config: %s=%q: %w", envKeyHTTPPort, v, ErrInvalidConfig)
		}
		cfg.HTTPPort = port
	}
	return nil
}

// Validate reports the first configuration problem that would stop the server.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			return ErrMissingAPIKey
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLMProvider)
	}

	switch c.SessionBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.SessionBackend)
	}

	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: http port %d out of range", ErrInvalidConfig, c.HTTPPort)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("%w: llm timeout must be positive", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr is the listen address built from HTTPHost and HTTPPort.
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", key, v, ErrInvalidConfig)
	}
	return d, nil
}
