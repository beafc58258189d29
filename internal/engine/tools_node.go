package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"
)

// runTools executes every tool call requested by the last worker response.
// Tool errors become textual results so the worker can react to them
// instead of the run aborting.
func (e *Engine) runTools(ctx context.Context, state *TaskState) error {
	last := state.lastMessage()
	if last == nil || len(last.ToolCalls) == 0 {
		return fmt.Errorf("engine: tools node reached without pending tool calls")
	}

	for _, tc := range last.ToolCalls {
		var result string
		if e.tools == nil {
			result = fmt.Sprintf("[TOOL_ERROR] %s: no tools available", tc.Function.Name)
		} else {
			out, err := e.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				slog.Warn("tool call failed, converting to textual result",
					"tool", tc.Function.Name, "thread", e.threadID, "error", err)
				result = fmt.Sprintf("[TOOL_ERROR] %s: %v", tc.Function.Name, err)
			} else if out == "" {
				// Some providers reject empty tool results.
				result = "[OK]"
			} else {
				result = out
			}
		}

		state.Messages = append(state.Messages, &schema.Message{
			Role:       schema.Tool,
			Content:    result,
			ToolCallID: tc.ID,
		})
	}
	return nil
}
