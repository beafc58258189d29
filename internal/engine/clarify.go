package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/history"
)

// clarifyingQuestionCount is the fixed number of questions returned.
const clarifyingQuestionCount = 3

// fallbackClarifyingQuestions is returned when the model call fails, and
// pads short responses.
var fallbackClarifyingQuestions = []string{
	"Could you describe the outcome you expect in more detail?",
	"Are there any constraints or preferences the answer should respect?",
	"What format should the final answer take?",
}

// ClarifyingQuestions produces exactly three questions that would help
// sharpen the task before a run. Stateless: it never touches task state.
func (e *Engine) ClarifyingQuestions(ctx context.Context, message, criteria string) []string {
	if strings.TrimSpace(criteria) == "" {
		criteria = DefaultSuccessCriteria
	}

	prompt := fmt.Sprintf(`A user is about to give an assistant this task:

%s

The success criteria is:
%s

Write exactly 3 short clarifying questions that would most improve the result.
Output one question per line, nothing else.`, message, criteria)

	msgs := []*schema.Message{
		{Role: schema.User, Content: prompt},
	}

	resp, err := e.planner.Generate(ctx, msgs)
	if err != nil {
		slog.Warn("clarifying questions call failed, using fallback set", "thread", e.threadID, "error", err)
		return append([]string(nil), fallbackClarifyingQuestions...)
	}

	questions := parseQuestionLines(resp.Content)
	for i := len(questions); i < clarifyingQuestionCount; i++ {
		questions = append(questions, fallbackClarifyingQuestions[i])
	}
	return questions[:clarifyingQuestionCount]
}

// parseQuestionLines extracts question strings from line-delimited model
// output, dropping list numbering and bullets.
func parseQuestionLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)- *")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == clarifyingQuestionCount {
			break
		}
	}
	return out
}

// ComposeClarifiedMessage appends answered clarifying questions to the
// user's message in the canonical Q&A block format. Unanswered questions
// are skipped; with no answers at all the message is returned unchanged.
func ComposeClarifiedMessage(message string, questions, answers []string) string {
	var answered []string
	for i, q := range questions {
		if i >= len(answers) || i >= clarifyingQuestionCount {
			break
		}
		a := strings.TrimSpace(answers[i])
		if a == "" {
			continue
		}
		answered = append(answered, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, q, i+1, a))
	}
	if len(answered) == 0 {
		return message
	}
	return message + history.ClarifyingMarker + "\n" + strings.Join(answered, "\n\n")
}
