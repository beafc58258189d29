package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	content := `# Provider keys
OPENAI_API_KEY=sk-local
PUSHOVER_TOKEN=tok-123

# Quoted values
SECRET="my-secret-value"
SINGLE='single-quoted'

# export prefix and spaces around =
export EXPORTED_KEY=exported_value
SPACED_KEY = spaced_value
`

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Clear any existing values.
	for _, k := range []string{"OPENAI_API_KEY", "PUSHOVER_TOKEN", "SECRET", "SINGLE", "EXPORTED_KEY", "SPACED_KEY"} {
		os.Unsetenv(k)
	}

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key, want string
	}{
		{"OPENAI_API_KEY", "sk-local"},
		{"PUSHOVER_TOKEN", "tok-123"},
		{"SECRET", "my-secret-value"},
		{"SINGLE", "single-quoted"},
		{"EXPORTED_KEY", "exported_value"},
		{"SPACED_KEY", "spaced_value"},
	}

	for _, tt := range tests {
		got := os.Getenv(tt.key)
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadDotenvNoOverride(t *testing.T) {
	content := `EXISTING_VAR=new-value`
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EXISTING_VAR", "original")

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}

	if got := os.Getenv("EXISTING_VAR"); got != "original" {
		t.Errorf("expected existing var to be preserved, got %q", got)
	}
}

func TestParseDotenv(t *testing.T) {
	pairs := parseDotenv("A=1\nnot a pair\n =blank-key\nB='2'\n")
	want := [][2]string{{"A", "1"}, {"B", "2"}}
	if len(pairs) != len(want) {
		t.Fatalf("pairs: %v", pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	err := LoadDotenv("/nonexistent/.env")
	if err != nil {
		t.Errorf("missing file should be silently ignored, got: %v", err)
	}
}
