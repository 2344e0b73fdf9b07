package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/cuuri/internal/config"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/providers/llm"
	"github.com/sandevgo/cuuri/internal/service/chat"
	"github.com/sandevgo/cuuri/internal/storage/sqlite"
	"github.com/sandevgo/cuuri/internal/transport/cli"
	"github.com/sandevgo/cuuri/internal/transport/telegram"
	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/sandevgo/cuuri/pkg/srv"
)

// app holds the wired pipeline shared by all commands.
type app struct {
	appCfg      *config.AppConfig
	providerCfg *config.ProviderConfig
	db          *sql.DB
	repo        *sqlite.ExchangesRepo
	provider    core.AIProvider
	chat        *chat.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	providerCfg := config.NewProviderConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	repo := sqlite.NewExchangesRepo(db)

	// 3. AI Provider
	provider, err := llm.NewProvider(ctx, providerCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	// 4. Chat pipeline
	orchestrator := chat.NewOrchestrator(repo, provider,
		chat.WithBudget(chat.ContextBudget{
			MaxExchanges: appCfg.ContextMaxExchanges,
			MaxTokens:    appCfg.ContextMaxTokens,
		}),
		chat.WithTokenCounter(newTokenCounter(ctx, appCfg)),
	)

	return &app{
		appCfg:      appCfg,
		providerCfg: providerCfg,
		db:          db,
		repo:        repo,
		provider:    provider,
		chat:        orchestrator,
	}, nil
}

// newTokenCounter loads tiktoken only when a token budget is set.
func newTokenCounter(ctx context.Context, cfg *config.AppConfig) chat.TokenCounter {
	if cfg.ContextMaxTokens <= 0 {
		return chat.EstimateCounter{}
	}
	return chat.NewTokenCounter(ctx)
}

// Close checkpoints the WAL and closes the database.
func (a *app) Close(ctx context.Context) error {
	if err := a.repo.Checkpoint(ctx); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("wal checkpoint failed")
	}
	return a.db.Close()
}

func (a *app) request(sessionID, text string, images []core.Image, model string) core.SubmitRequest {
	if model == "" {
		model = a.providerCfg.GetModel()
	}
	return core.SubmitRequest{
		SessionID:  sessionID,
		Text:       text,
		Images:     images,
		Model:      model,
		Credential: a.providerCfg.GetAPIKey(),
	}
}

// NewServices lists long-running services. The storage cleanup comes first
// so it is shut down last.
func NewServices(ctx context.Context, a *app, sessionID string) ([]srv.Service, error) {
	services := []srv.Service{srv.NewCleanupCtx(a.Close)}

	transports, err := initTransports(ctx, a, sessionID)
	if err != nil {
		return nil, err
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("no transport enabled, set ENABLE_CLI or ENABLE_TELEGRAM")
	}
	return append(services, transports...), nil
}

func initTransports(ctx context.Context, a *app, sessionID string) ([]srv.Service, error) {
	var services []srv.Service

	// Telegram Bot
	if a.appCfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, a.providerCfg, a.chat)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	// Terminal REPL
	if a.appCfg.IsCLISelected() {
		repl, err := cli.NewReadLine(a.chat, a.providerCfg, a.appCfg.GetInputHistoryPath(), sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to start readline: %w", err)
		}
		services = append(services, repl)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
