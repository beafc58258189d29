package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const planningPhasePrefix = "Planning Phase"

// planOutput is the structured planner response.
type planOutput struct {
	Strategy         string   `json:"strategy"`
	ExecutionSteps   []string `json:"execution_steps"`
	RecommendedTools []string `json:"recommended_tools"`
	Considerations   string   `json:"considerations"`
}

const plannerSystemPrompt = `You are a planning assistant. Given a task and its success criteria, produce a short execution plan.
Respond with a JSON object:
` + "```json" + `
{"strategy": "one-line strategy", "execution_steps": ["step 1", "step 2"], "recommended_tools": ["tool_name"], "considerations": "risks or notes"}
` + "```" + `
Only output the JSON, no other text.`

// plan produces an execution plan for the run. Planner failures never abort
// the run: a deterministic plan built from the available tool names is used
// instead.
func (e *Engine) plan(ctx context.Context, state *TaskState) {
	out, err := e.invokePlanner(ctx, state)
	if err != nil {
		slog.Warn("planner failed, using fallback plan", "thread", e.threadID, "error", err)
		out = e.fallbackPlan(state)
	}

	state.ExecutionPlan = formatPlan(out)
	state.PlannerIterations++
	state.Messages = append(state.Messages, &schema.Message{
		Role:    schema.Assistant,
		Content: fmt.Sprintf("%s: %s", planningPhasePrefix, out.Strategy),
	})
}

func (e *Engine) invokePlanner(ctx context.Context, state *TaskState) (*planOutput, error) {
	var sb strings.Builder
	sb.WriteString("Task:\n")
	sb.WriteString(lastUserContent(state.Messages))
	sb.WriteString("\n\nSuccess criteria:\n")
	sb.WriteString(state.SuccessCriteria)
	if e.tools != nil {
		sb.WriteString("\n\nAvailable tools: ")
		sb.WriteString(strings.Join(e.tools.Names(), ", "))
	}
	if state.FeedbackOnWork != "" {
		sb.WriteString("\n\nThe previous attempt was rejected with this feedback:\n")
		sb.WriteString(state.FeedbackOnWork)
		sb.WriteString("\nProduce a revised plan that addresses the feedback.")
	}

	msgs := []*schema.Message{
		{Role: schema.System, Content: plannerSystemPrompt},
		{Role: schema.User, Content: sb.String()},
	}

	resp, err := e.planner.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("planner call: %w", err)
	}

	var out planOutput
	if err := parseStructured(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("planner response: %w", err)
	}
	if strings.TrimSpace(out.Strategy) == "" {
		return nil, fmt.Errorf("planner response: empty strategy")
	}
	return &out, nil
}

// fallbackPlan is the deterministic plan used when the planner call or its
// parsing fails.
func (e *Engine) fallbackPlan(state *TaskState) *planOutput {
	var names []string
	if e.tools != nil {
		names = e.tools.Names()
	}
	steps := []string{
		"Understand the request and the success criteria",
		"Gather any missing information using the available tools",
		"Produce the answer and check it against the success criteria",
	}
	return &planOutput{
		Strategy:         "Work through the task directly, using tools where they help",
		ExecutionSteps:   steps,
		RecommendedTools: names,
		Considerations:   "Automatically generated fallback plan",
	}
}

func formatPlan(out *planOutput) string {
	var sb strings.Builder
	sb.WriteString("Strategy: ")
	sb.WriteString(out.Strategy)
	if len(out.ExecutionSteps) > 0 {
		sb.WriteString("\nSteps:")
		for i, step := range out.ExecutionSteps {
			sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, step))
		}
	}
	if len(out.RecommendedTools) > 0 {
		sb.WriteString("\nRecommended tools: ")
		sb.WriteString(strings.Join(out.RecommendedTools, ", "))
	}
	if out.Considerations != "" {
		sb.WriteString("\nConsiderations: ")
		sb.WriteString(out.Considerations)
	}
	return sb.String()
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}
