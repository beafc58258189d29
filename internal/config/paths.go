package config

import (
	"os"
	"path/filepath"
)

// SidekickPath returns the root directory for Sidekick data.
// It uses $SIDEKICK_PATH if set, otherwise defaults to ~/.sidekick.
func SidekickPath() string {
	if v := os.Getenv("SIDEKICK_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sidekick")
	}
	return filepath.Join(home, ".sidekick")
}

// ConfigPath returns the path to the Sidekick config file.
func ConfigPath() string {
	return filepath.Join(SidekickPath(), "config.jsonc")
}

// DotenvPath returns the path to the Sidekick .env file.
func DotenvPath() string {
	return filepath.Join(SidekickPath(), ".env")
}

// DBPath returns the default path to the SQLite database.
func DBPath() string {
	return filepath.Join(SidekickPath(), "sidekick.db")
}

// SandboxPath returns the default root directory for the file tools.
func SandboxPath() string {
	return filepath.Join(SidekickPath(), "sandbox")
}
