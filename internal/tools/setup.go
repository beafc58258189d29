package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dohr-michael/sidekick/internal/browser"
	"github.com/dohr-michael/sidekick/internal/config"
)

// Setup builds the registry with every enabled native tool. pool may be nil,
// which disables the browser-backed tools.
func Setup(ctx context.Context, cfg *config.Config, pool *browser.Pool) (*Registry, error) {
	reg := NewRegistry()

	if cfg.Tools.WebSearchEnabled() {
		search, err := NewWebSearch(ctx, cfg.Tools.WebSearch)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(ctx, search); err != nil {
			return nil, err
		}
	}

	if err := reg.Register(ctx, NewWebFetch(cfg.Tools.WebFetch)); err != nil {
		return nil, err
	}

	fileTools, err := NewFileTools(cfg.Tools.SandboxDir)
	if err != nil {
		return nil, err
	}
	for _, t := range fileTools {
		if err := reg.Register(ctx, t); err != nil {
			return nil, err
		}
	}

	if push := NewPushNotification(cfg.Tools.Push); push != nil {
		if err := reg.Register(ctx, push); err != nil {
			return nil, err
		}
	} else {
		slog.Info("send_push_notification disabled: no pushover credentials")
	}

	if pool != nil && cfg.Browser.BrowserEnabled() {
		pdf, err := NewMarkdownToPDF(cfg.Tools.SandboxDir, pool)
		if err != nil {
			return nil, fmt.Errorf("tools: %w", err)
		}
		if err := reg.Register(ctx, pdf); err != nil {
			return nil, err
		}
		if err := reg.Register(ctx, NewBrowsePage(pool)); err != nil {
			return nil, err
		}
	}

	slog.Info("tools ready", "tools", reg.Names())
	return reg, nil
}
