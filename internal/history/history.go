// Package history converts raw engine transcripts into the user-facing
// conversation history and repairs transcripts before model calls.
package history

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Entry is a single user-facing conversation message.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ClarifyingMarker separates the user's message from the appended
// clarifying Q&A context. Everything from the marker onward is
// engine-internal and never shown back to the user.
const ClarifyingMarker = "\n\nClarifying Questions and Answers:"

// internalPrefixes mark assistant messages produced by the engine for its
// own consumption (evaluator feedback, plan summaries, tool placeholders).
var internalPrefixes = []string{
	"Evaluator Feedback",
	"Planning Phase",
	"[Tools use]",
}

// RepairToolCalls drops assistant tool-call messages whose calls never
// received a matching tool result later in the sequence, along with any
// tool results that no longer have a surviving call. Model providers
// reject transcripts with dangling tool calls, so this runs before every
// model call and before reconciliation.
func RepairToolCalls(msgs []*schema.Message) []*schema.Message {
	keptCall := make(map[string]bool)
	dropped := make(map[int]bool)

	for i, m := range msgs {
		if m.Role != schema.Assistant || len(m.ToolCalls) == 0 {
			continue
		}
		complete := true
		for _, tc := range m.ToolCalls {
			if !hasResultAfter(msgs, i, tc.ID) {
				complete = false
				break
			}
		}
		if !complete {
			dropped[i] = true
			continue
		}
		for _, tc := range m.ToolCalls {
			keptCall[tc.ID] = true
		}
	}

	out := make([]*schema.Message, 0, len(msgs))
	for i, m := range msgs {
		if dropped[i] {
			continue
		}
		if m.Role == schema.Tool && !keptCall[m.ToolCallID] {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasResultAfter(msgs []*schema.Message, from int, id string) bool {
	for j := from + 1; j < len(msgs); j++ {
		if msgs[j].Role == schema.Tool && msgs[j].ToolCallID == id {
			return true
		}
	}
	return false
}

// Reconcile turns a raw engine transcript into the user-facing history:
// tool traffic and engine-internal messages are removed, clarifying Q&A
// context is stripped from user messages, and duplicate entries (same
// role, same trimmed content) are collapsed to their first occurrence.
func Reconcile(msgs []*schema.Message) []Entry {
	repaired := RepairToolCalls(msgs)

	out := make([]Entry, 0, len(repaired))
	seen := make(map[string]bool)

	for _, m := range repaired {
		var entry Entry
		switch m.Role {
		case schema.User:
			entry = Entry{Role: RoleUser, Content: StripClarifyingSuffix(m.Content)}
		case schema.Assistant:
			if len(m.ToolCalls) > 0 || isInternal(m.Content) {
				continue
			}
			entry = Entry{Role: RoleAssistant, Content: m.Content}
		default:
			continue
		}

		trimmed := strings.TrimSpace(entry.Content)
		if trimmed == "" {
			continue
		}
		key := entry.Role + "\x00" + trimmed
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entry)
	}
	return out
}

// StripClarifyingSuffix removes an embedded clarifying Q&A block from a
// user message, returning only the original request text.
func StripClarifyingSuffix(content string) string {
	if before, _, found := strings.Cut(content, ClarifyingMarker); found {
		return strings.TrimRight(before, " \n")
	}
	return content
}

// MergeWithDedup appends the run-boundary user and assistant entries to
// prior history, skipping any entry whose role and trimmed content
// already appear in the history.
func MergeWithDedup(prior []Entry, entries ...Entry) []Entry {
	out := make([]Entry, 0, len(prior)+len(entries))
	out = append(out, prior...)
	for _, e := range entries {
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		if !contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func contains(entries []Entry, e Entry) bool {
	want := strings.TrimSpace(e.Content)
	for _, x := range entries {
		if x.Role == e.Role && strings.TrimSpace(x.Content) == want {
			return true
		}
	}
	return false
}

func isInternal(content string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(content, p) {
			return true
		}
	}
	return false
}
