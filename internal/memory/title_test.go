package memory

import (
	"strings"
	"testing"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short message kept", "explain quantum computing", "Explain quantum computing"},
		{"already capitalized", "What is Go?", "What is Go?"},
		{"whitespace collapsed", "  hello \n\t world  ", "Hello world"},
		{"empty falls back", "", DefaultTitle},
		{"whitespace only falls back", "   \n\t ", DefaultTitle},
		{
			"clarifying suffix stripped",
			"plan a trip\n\nClarifying Questions and Answers:\nQ1: Where?\nA1: Rome",
			"Plan a trip",
		},
		{
			"clarifying suffix only falls back",
			"\n\nClarifying Questions and Answers:\nQ1: Where?\nA1: Rome",
			DefaultTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.message); got != tt.want {
				t.Fatalf("GenerateTitle(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_TruncatesAtWordBoundary(t *testing.T) {
	msg := "please summarize the complete history of distributed version control systems"
	got := GenerateTitle(msg)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("long title must end with ellipsis: %q", got)
	}
	base := strings.TrimSuffix(got, "...")
	if len([]rune(base)) > 50 {
		t.Fatalf("title too long (%d runes): %q", len([]rune(base)), got)
	}
	if strings.HasSuffix(base, " ") {
		t.Fatalf("word-boundary cut left trailing space: %q", got)
	}
	// The cut lands on a word boundary, not mid-word.
	lastWord := base[strings.LastIndex(base, " ")+1:]
	if !strings.Contains(msg, lastWord+" ") && !strings.HasSuffix(msg, lastWord) {
		t.Fatalf("cut split a word: %q", got)
	}
}

func TestGenerateTitle_HardCutWithoutLateSpace(t *testing.T) {
	msg := strings.Repeat("a", 60)
	got := GenerateTitle(msg)

	want := strings.ToUpper(msg[:1]) + msg[1:50] + "..."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGenerateTitle_RuneSafe(t *testing.T) {
	msg := strings.Repeat("é", 60)
	got := GenerateTitle(msg)

	base := strings.TrimSuffix(got, "...")
	if len([]rune(base)) != 50 {
		t.Fatalf("rune-unsafe truncation: %d runes in %q", len([]rune(base)), got)
	}
	if strings.Contains(got, "�") {
		t.Fatalf("truncation split a rune: %q", got)
	}
}
