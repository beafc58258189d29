package memory

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	titleMaxLen       = 50
	titleWordBoundary = 30
)

// clarifyingMarker matches the clarifying Q&A block appended to user
// messages; content from the marker onward never belongs in a title.
const clarifyingMarker = "\n\nClarifying Questions and Answers:"

var whitespaceRe = regexp.MustCompile(`\s+`)

// GenerateTitle derives a conversation title from the user's first message:
// strip any clarifying Q&A suffix, collapse whitespace, truncate to 50
// characters (preferring a word boundary past position 30), and capitalize
// the first letter. Empty input falls back to the default title.
func GenerateTitle(message string) string {
	if before, _, found := strings.Cut(message, clarifyingMarker); found {
		message = before
	}

	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(message), " ")
	if cleaned == "" {
		return DefaultTitle
	}

	runes := []rune(cleaned)
	var title string
	if len(runes) <= titleMaxLen {
		title = cleaned
	} else {
		truncated := string(runes[:titleMaxLen])
		if lastSpace := strings.LastIndex(truncated, " "); lastSpace > titleWordBoundary {
			title = truncated[:lastSpace] + "..."
		} else {
			title = truncated + "..."
		}
	}

	title = capitalizeFirst(title)
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
