package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sidekick/internal/browser"
	"github.com/dohr-michael/sidekick/internal/config"
	"github.com/dohr-michael/sidekick/internal/engine"
	"github.com/dohr-michael/sidekick/internal/gateway"
	"github.com/dohr-michael/sidekick/internal/memory"
	"github.com/dohr-michael/sidekick/internal/models"
	"github.com/dohr-michael/sidekick/internal/tools"
)

// loadConfig reads the config file, falling back to defaults when missing.
func loadConfig(cmd *cli.Command) *config.Config {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", path, "error", err)
		cfg = config.Default()
	}
	return cfg
}

// app bundles the long-lived pieces every command wires the same way.
type app struct {
	cfg      *config.Config
	store    *memory.Store
	registry *models.Registry
	pool     *browser.Pool
	tools    *tools.Registry
}

func newApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg := loadConfig(cmd)

	store, err := memory.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	var pool *browser.Pool
	if cfg.Browser.BrowserEnabled() {
		pool = browser.NewPool(cfg.Browser.BrowserHeadless())
	}

	toolReg, err := tools.Setup(ctx, cfg, pool)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		registry: models.NewRegistry(cfg.Models),
		pool:     pool,
		tools:    toolReg,
	}, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("close store failed", "error", err)
	}
}

// runnerFactory builds a per-conversation engine on demand.
func (a *app) runnerFactory() gateway.RunnerFactory {
	return func(ctx context.Context, username, conversationID string) (gateway.Runner, error) {
		worker, err := a.registry.Default(ctx)
		if err != nil {
			return nil, err
		}
		planner, err := a.registry.Planner(ctx)
		if err != nil {
			return nil, err
		}

		return engine.New(ctx, engine.Config{
			Worker:         worker,
			Planner:        planner,
			Tools:          a.tools,
			Checkpoints:    a.store,
			Conversations:  a.store,
			Username:       username,
			ConversationID: conversationID,
			ThreadID:       memory.ThreadID(username, conversationID),
			MaxSteps:       a.cfg.Engine.MaxSteps,
		})
	}
}
