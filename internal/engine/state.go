// Package engine implements the bounded plan/work/evaluate control loop
// that drives a single task run against a tool-capable chat model.
package engine

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// DefaultSuccessCriteria is used when the caller supplies no criteria.
const DefaultSuccessCriteria = "The answer should be clear and accurate"

// Loop bounds. The router stops a run at hardStopIterations; the evaluator
// force-accepts at forceAcceptIterations. Both constants are load-bearing:
// 15 ends the run cleanly with the evaluator's last verdict, 20 guarantees
// an accepted answer if a run ever gets that far. Keep both.
const (
	hardStopIterations    = 15
	forceAcceptIterations = 20
	maxPlannerIterations  = 2
	replanIteration       = 7
)

// replanKeywords trigger a mid-run replan when they appear in evaluator
// feedback, matched as literal substrings.
var replanKeywords = []string{
	"different approach",
	"strategy",
	"plan",
	"reconsider",
	"rethink",
}

// node identifies a state machine node.
type node string

const (
	nodePlan  node = "plan"
	nodeWork  node = "work"
	nodeTools node = "tools"
	nodeEval  node = "eval"
	nodeEnd   node = "end"
)

// TaskState is the full mutable state of one run, snapshotted to the
// checkpoint store after every transition.
type TaskState struct {
	Messages           []*schema.Message `json:"messages"`
	SuccessCriteria    string            `json:"success_criteria"`
	FeedbackOnWork     string            `json:"feedback_on_work,omitempty"`
	SuccessCriteriaMet bool              `json:"success_criteria_met"`
	UserInputNeeded    bool              `json:"user_input_needed"`
	IterationCount     int               `json:"iteration_count"`
	ExecutionPlan      string            `json:"execution_plan,omitempty"`
	PlannerIterations  int               `json:"planner_iterations"`
}

// NewTaskState returns an empty state with the default success criteria.
func NewTaskState() *TaskState {
	return &TaskState{SuccessCriteria: DefaultSuccessCriteria}
}

// BeginRun resets the per-run fields and appends the user's message.
// Accumulated messages survive across runs; flags and counters do not.
func (s *TaskState) BeginRun(userMessage, criteria string) {
	if strings.TrimSpace(criteria) == "" {
		criteria = DefaultSuccessCriteria
	}
	s.SuccessCriteria = criteria
	s.FeedbackOnWork = ""
	s.SuccessCriteriaMet = false
	s.UserInputNeeded = false
	s.IterationCount = 0
	s.PlannerIterations = 0
	s.ExecutionPlan = ""
	s.Messages = append(s.Messages, &schema.Message{Role: schema.User, Content: userMessage})
}

// SetSystemMessage replaces the singleton system message in place, or
// prepends one when the transcript has none yet.
func (s *TaskState) SetSystemMessage(content string) {
	for _, m := range s.Messages {
		if m.Role == schema.System {
			m.Content = content
			return
		}
	}
	msgs := make([]*schema.Message, 0, len(s.Messages)+1)
	msgs = append(msgs, &schema.Message{Role: schema.System, Content: content})
	msgs = append(msgs, s.Messages...)
	s.Messages = msgs
}

// lastMessage returns the most recent message, or nil for an empty transcript.
func (s *TaskState) lastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

func containsReplanKeyword(feedback string) bool {
	lower := strings.ToLower(feedback)
	for _, kw := range replanKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
