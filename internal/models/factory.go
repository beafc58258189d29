package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/sidekick/internal/config"
)

const (
	defaultAnthropicMaxTokens = 8192
	defaultOpenAITimeout      = 60 * time.Second
)

// CreateModel builds the chat model a provider block describes. The worker
// and planner registry slots both resolve through here, so one config can
// mix drivers freely, a local ollama planner next to a hosted worker.
func CreateModel(ctx context.Context, cfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	driver := strings.ToLower(cfg.Driver)

	var auth ResolvedAuth
	if driver != "ollama" {
		var err error
		if auth, err = ResolveAuth(cfg); err != nil {
			return nil, fmt.Errorf("resolve auth for %s: %w", driver, err)
		}
	}

	switch driver {
	case "anthropic":
		return newAnthropic(ctx, cfg, auth)
	case "openai":
		return newOpenAI(ctx, cfg, auth)
	case "ollama":
		return newOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}

func newAnthropic(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.ToolCallingChatModel, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	modelConfig := &einoclaude.Config{
		APIKey:    auth.Value,
		Model:     cfg.Model,
		MaxTokens: maxTokens,
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelConfig.BaseURL = &baseURL
	}
	if temp, ok := floatOption(cfg.Options, "temperature"); ok {
		modelConfig.Temperature = &temp
	}
	if topP, ok := floatOption(cfg.Options, "top_p"); ok {
		modelConfig.TopP = &topP
	}

	return einoclaude.NewChatModel(ctx, modelConfig)
}

func newOpenAI(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.ToolCallingChatModel, error) {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:  auth.Value,
		Model:   cfg.Model,
		Timeout: defaultOpenAITimeout,
	}
	if cfg.BaseURL != "" {
		modelConfig.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}
	if cfg.Timeout.Duration() > 0 {
		modelConfig.Timeout = cfg.Timeout.Duration()
	}
	if temp, ok := floatOption(cfg.Options, "temperature"); ok {
		modelConfig.Temperature = &temp
	}
	if topP, ok := floatOption(cfg.Options, "top_p"); ok {
		modelConfig.TopP = &topP
	}

	return einoopenai.NewChatModel(ctx, modelConfig)
}

// Sampling knobs ride in the free-form provider options block. JSON
// numbers decode as float64, so every lookup narrows from there.
func floatOption(opts map[string]any, key string) (float32, bool) {
	v, ok := opts[key].(float64)
	return float32(v), ok
}

func intOption(opts map[string]any, key string) (int, bool) {
	v, ok := opts[key].(float64)
	return int(v), ok
}
