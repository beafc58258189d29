package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, strips comments, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before stripping, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("standardize config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a Config with all defaults applied, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18430
	}
	if cfg.Engine.MaxSteps == 0 {
		cfg.Engine.MaxSteps = 200
	}
	if cfg.Engine.RunTimeout == 0 {
		cfg.Engine.RunTimeout = Duration(120 * time.Second)
	}
	if cfg.Tools.SandboxDir == "" {
		cfg.Tools.SandboxDir = SandboxPath()
	}
	if cfg.Tools.WebSearch.MaxResults <= 0 {
		cfg.Tools.WebSearch.MaxResults = 5
	}
	if cfg.Tools.WebFetch.MaxBodyKB <= 0 {
		cfg.Tools.WebFetch.MaxBodyKB = 512
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DBPath()
	}
	if cfg.Models.Planner == "" {
		cfg.Models.Planner = cfg.Models.Default
	}
	// Auth resolution is deferred to models.ResolveAuth() at model init time.
}
