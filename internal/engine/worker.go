package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/history"
	"github.com/dohr-michael/sidekick/internal/models"
)

// DirectReply answers the message with a single model call, outside the
// control loop. Degraded path for when a full run fails.
func (e *Engine) DirectReply(ctx context.Context, message string) (string, error) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: "You are a helpful assistant."},
		{Role: schema.User, Content: message},
	}
	resp, err := e.worker.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("engine: direct reply: %w", models.HandleError(err))
	}
	return resp.Content, nil
}

// work drives one worker pass: refresh the system prompt, repair the
// transcript, call the tool-bound model, and route on the response.
func (e *Engine) work(ctx context.Context, state *TaskState) (node, error) {
	state.SetSystemMessage(e.buildWorkerPrompt(state))
	state.Messages = history.RepairToolCalls(state.Messages)

	resp, err := e.worker.Generate(ctx, state.Messages)
	if err != nil {
		return "", fmt.Errorf("engine: worker call: %w", models.HandleError(err))
	}
	state.Messages = append(state.Messages, resp)

	if len(resp.ToolCalls) > 0 {
		return nodeTools, nil
	}
	return nodeEval, nil
}

func (e *Engine) buildWorkerPrompt(state *TaskState) string {
	var sb strings.Builder
	sb.WriteString(`You are a helpful assistant that can use tools to complete tasks.
You keep working on a task until either you have a question or clarification for the user, or the success criteria is met.
You have many tools to help you, including tools to browse the internet, navigating and retrieving web pages.
`)
	fmt.Fprintf(&sb, "The current date and time is %s\n", e.now().Format("2006-01-02 15:04:05"))

	sb.WriteString("\nThis is the success criteria:\n")
	sb.WriteString(state.SuccessCriteria)
	sb.WriteString("\n")

	if state.ExecutionPlan != "" {
		sb.WriteString("\nFollow this execution plan, adapting it as new information arrives:\n")
		sb.WriteString(state.ExecutionPlan)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, `
IMPORTANT: This is iteration %d. Work efficiently and be decisive. If you have enough information to reasonably complete the task, do so rather than endlessly searching for perfect information.

You should reply either with a question for the user about this assignment, or with your final response.
If you have a question for the user, you need to reply by clearly stating your question. An example might be:

Question: please clarify whether you want a summary or a detailed answer

If you've finished, reply with the final answer, and don't ask a question; simply reply with the answer.
`, state.IterationCount)

	if state.FeedbackOnWork != "" {
		fmt.Fprintf(&sb, `
Previously you thought you completed the assignment, but your reply was rejected because the success criteria was not met.
Here is the feedback on why this was rejected:
%s
With this feedback, please continue the assignment, ensuring that you meet the success criteria or have a question for the user.

NOTE: If you're repeating the same actions after %d iterations, try a different approach or ask for clarification.`,
			state.FeedbackOnWork, state.IterationCount)
	}

	return sb.String()
}
