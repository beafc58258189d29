package config

import "time"

// Config is the root configuration for Sidekick.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Models  ModelsConfig  `json:"models"`
	Engine  EngineConfig  `json:"engine"`
	Tools   ToolsConfig   `json:"tools"`
	Browser BrowserConfig `json:"browser"`
	Storage StorageConfig `json:"storage"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Planner   string                    `json:"planner,omitempty"` // provider for planner/evaluator calls (default: Default)
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `json:"driver"` // "anthropic", "openai", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	Auth      AuthConfig     `json:"auth"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"` // driver sampling knobs (temperature, top_p, ...)
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	Token  string `json:"token,omitempty"`   // OAuth/Bearer token
}

// EngineConfig holds task engine settings.
type EngineConfig struct {
	MaxSteps   int      `json:"max_steps"`   // graph transition ceiling per run
	RunTimeout Duration `json:"run_timeout"` // wall-clock budget for one run
}

// ToolsConfig configures the built-in tool set.
type ToolsConfig struct {
	SandboxDir string          `json:"sandbox_dir,omitempty"` // root for file tools (default: $SIDEKICK_PATH/sandbox)
	WebSearch  WebSearchConfig `json:"web_search"`
	WebFetch   WebFetchConfig  `json:"web_fetch"`
	Push       PushConfig      `json:"push"`
}

// WebSearchConfig configures the web_search tool.
type WebSearchConfig struct {
	Enabled    *bool    `json:"enabled,omitempty"` // default true
	MaxResults int      `json:"max_results,omitempty"`
	Timeout    Duration `json:"timeout,omitempty"`
}

// WebFetchConfig configures the web_fetch tool.
type WebFetchConfig struct {
	MaxBodyKB int      `json:"max_body_kb,omitempty"`
	Timeout   Duration `json:"timeout,omitempty"`
	UserAgent string   `json:"user_agent,omitempty"`
}

// PushConfig configures the send_push_notification tool (Pushover).
// Empty token disables the tool.
type PushConfig struct {
	Token string `json:"token,omitempty"`
	User  string `json:"user,omitempty"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	Enabled  *bool `json:"enabled,omitempty"` // default true
	Headless *bool `json:"headless,omitempty"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DBPath string `json:"db_path,omitempty"` // default: $SIDEKICK_PATH/sidekick.db
}

// WebSearchEnabled reports whether the web_search tool should be registered.
func (c ToolsConfig) WebSearchEnabled() bool {
	return c.WebSearch.Enabled == nil || *c.WebSearch.Enabled
}

// BrowserEnabled reports whether the shared browser should be started.
func (c BrowserConfig) BrowserEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// BrowserHeadless reports whether the browser runs headless.
func (c BrowserConfig) BrowserHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
