package models

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/dohr-michael/sidekick/internal/config"
)

func TestResolveAuth_DirectAPIKey(t *testing.T) {
	cfg := config.ProviderConfig{
		Driver: "anthropic",
		Auth:   config.AuthConfig{APIKey: "sk-ant-test-123"},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Kind != AuthAPIKey {
		t.Fatalf("expected AuthAPIKey, got %d", auth.Kind)
	}
	if auth.Value != "sk-ant-test-123" {
		t.Fatalf("expected value %q, got %q", "sk-ant-test-123", auth.Value)
	}
}

func TestResolveAuth_DirectBearerToken(t *testing.T) {
	cfg := config.ProviderConfig{
		Driver: "anthropic",
		Auth: config.AuthConfig{
			APIKey: "sk-ant-test-123",
			Token:  "bearer-token-xyz",
		},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	// Bearer token takes priority over API key
	if auth.Kind != AuthBearerToken {
		t.Fatalf("expected AuthBearerToken, got %d", auth.Kind)
	}
	if auth.Value != "bearer-token-xyz" {
		t.Fatalf("expected value %q, got %q", "bearer-token-xyz", auth.Value)
	}
}

func TestResolveAuth_EnvVarSyntax(t *testing.T) {
	t.Setenv("MY_CUSTOM_KEY", "custom-api-key-value")

	cfg := config.ProviderConfig{
		Driver: "openai",
		Auth:   config.AuthConfig{APIKey: "${MY_CUSTOM_KEY}"},
	}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Value != "custom-api-key-value" {
		t.Fatalf("expected value %q, got %q", "custom-api-key-value", auth.Value)
	}
}

func TestResolveAuth_FallbackEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic-key")

	cfg := config.ProviderConfig{Driver: "anthropic"}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Value != "env-anthropic-key" {
		t.Fatalf("expected value %q, got %q", "env-anthropic-key", auth.Value)
	}
}

func TestResolveAuth_OllamaNeedsNoAuth(t *testing.T) {
	cfg := config.ProviderConfig{Driver: "ollama"}
	auth, err := ResolveAuth(cfg)
	if err != nil {
		t.Fatalf("ResolveAuth: %v", err)
	}
	if auth.Value != "" {
		t.Fatalf("expected empty credentials, got %q", auth.Value)
	}
}

func TestResolveAuth_UnknownDriver(t *testing.T) {
	cfg := config.ProviderConfig{Driver: "gemini"}
	_, err := ResolveAuth(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected 'unknown driver' error, got %v", err)
	}
}

func TestResolveAuth_NothingSet(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := config.ProviderConfig{Driver: "anthropic"}
	_, err := ResolveAuth(cfg)
	if err == nil {
		t.Fatal("expected error when no auth is available")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY not set") {
		t.Fatalf("expected 'ANTHROPIC_API_KEY not set' error, got %v", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	cfg := config.ModelsConfig{
		Default:   "main",
		Providers: map[string]config.ProviderConfig{},
	}
	reg := NewRegistry(cfg)

	_, err := reg.Get(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected 'not found' error, got %v", err)
	}
}

func TestRegistry_PlannerFallsBackToDefault(t *testing.T) {
	cfg := config.ModelsConfig{
		Default: "claude-main",
		Providers: map[string]config.ProviderConfig{
			"claude-main": {Driver: "anthropic"},
		},
	}
	reg := NewRegistry(cfg)

	if reg.DefaultName() != "claude-main" {
		t.Fatalf("expected default name %q, got %q", "claude-main", reg.DefaultName())
	}
	if reg.plannerName != "claude-main" {
		t.Fatalf("expected planner to fall back to default, got %q", reg.plannerName)
	}
}

func TestOptionLookups(t *testing.T) {
	opts := map[string]any{
		"temperature": 0.2,
		"top_k":       float64(40),
		"top_p":       "not a number",
	}

	if v, ok := floatOption(opts, "temperature"); !ok || v != 0.2 {
		t.Fatalf("temperature: got %v, %v", v, ok)
	}
	if v, ok := intOption(opts, "top_k"); !ok || v != 40 {
		t.Fatalf("top_k: got %v, %v", v, ok)
	}
	if _, ok := floatOption(opts, "top_p"); ok {
		t.Fatal("non-numeric option must not resolve")
	}
	if _, ok := floatOption(nil, "temperature"); ok {
		t.Fatal("nil options must not resolve")
	}
}

func TestOllamaOptions(t *testing.T) {
	cfg := config.ProviderConfig{
		MaxTokens: 1024,
		Options: map[string]any{
			"temperature": 0.7,
			"top_p":       0.9,
			"top_k":       float64(50),
			"num_ctx":     float64(8192),
		},
	}

	opts := ollamaOptions(cfg)
	if opts.NumPredict != 1024 {
		t.Fatalf("max_tokens must map to num_predict, got %d", opts.NumPredict)
	}
	if opts.Temperature != 0.7 || opts.TopP != 0.9 || opts.TopK != 50 || opts.NumCtx != 8192 {
		t.Fatalf("options not applied: %+v", opts)
	}

	explicit := config.ProviderConfig{
		MaxTokens: 1024,
		Options:   map[string]any{"num_predict": float64(256)},
	}
	if got := ollamaOptions(explicit).NumPredict; got != 256 {
		t.Fatalf("explicit num_predict must win over max_tokens, got %d", got)
	}
}

func TestCreateModel_UnknownDriver(t *testing.T) {
	cfg := config.ProviderConfig{Driver: "unknown-driver"}
	_, err := CreateModel(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected 'unknown driver' error, got %v", err)
	}
}
