package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/api"
	"github.com/matiasleandrokruk/cleverq/internal/domain/chat"
	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
	"github.com/matiasleandrokruk/cleverq/internal/infra/config"
	"github.com/matiasleandrokruk/cleverq/internal/infra/llm"
	"github.com/matiasleandrokruk/cleverq/internal/infra/sqlite"
	"github.com/matiasleandrokruk/cleverq/internal/server"
	"github.com/matiasleandrokruk/cleverq/pkg/token"
)

const healthCheckTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CleverQ HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			logger.Info("cleverq starting",
				"provider", cfg.LLMProvider,
				"model", a.provider.ModelInfo().ID,
				"session_backend", cfg.SessionBackend,
				"session_ttl", cfg.SessionTTL.String(),
			)
			if cfg.SessionSecret == "" {
				logger.Warn("SESSION_SECRET not set; sessions end on restart")
			}
			checkProvider(ctx, a.provider)

			srv := server.NewServer(a.handler, serverConfig(cfg))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to a YAML config file (default $CLEVERQ_CONFIG)")
	return cmd
}

// app is the wired object graph behind the HTTP handler.
type app struct {
	handler  http.Handler
	provider llm.LLMProvider
	close    func() error
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	router := llm.NewRouter(map[string]llm.LLMProvider{cfg.LLMProvider: provider}, cfg.LLMProvider)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := token.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("session signer: %w", err)
	}

	handler := api.NewRouter(api.Deps{
		Chat:   chat.NewService(store, router),
		Signer: signer,
	})
	return &app{handler: handler, provider: provider, close: closeStore}, nil
}

func newProvider(cfg config.Config) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GoogleAPIKey, cfg.GeminiModel, cfg.LLMTimeout), nil
	case config.ProviderOllama:
		return llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.LLMTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.LLMProvider)
	}
}

func newStore(ctx context.Context, cfg config.Config) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return session.NewMemoryStore(cfg.SessionTTL), func() error { return nil }, nil
	case config.BackendSQLite:
		db, err := sqlite.NewDB(sqlite.MemoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open session database: %w", err)
		}
		if err := sqlite.MigrateUp(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return session.NewSQLStore(db, cfg.SessionTTL), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.SessionBackend)
	}
}

func serverConfig(cfg config.Config) server.Config {
	sc := server.DefaultConfig()
	sc.Addr = cfg.Addr()
	if floor := cfg.LLMTimeout + 15*time.Second; sc.WriteTimeout < floor {
		sc.WriteTimeout = floor
	}
	return sc
}

// checkProvider logs whether the model endpoint answers. An unreachable
// provider is not fatal; each submit reports its own failure.
func checkProvider(ctx context.Context, p llm.LLMProvider) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	logger := pslog.Ctx(ctx).With("provider", p.ModelInfo().Provider)
	if err := p.HealthCheck(ctx); err != nil {
		logger.Warn("llm provider health check failed", "err", err)
		return
	}
	logger.Info("llm provider reachable")
}
