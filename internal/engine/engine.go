package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/history"
)

// ToolExecutor runs tool calls requested by the worker model.
type ToolExecutor interface {
	Infos(ctx context.Context) ([]*schema.ToolInfo, error)
	Execute(ctx context.Context, name, argumentsJSON string) (string, error)
	Names() []string
}

// CheckpointStore persists task state snapshots per thread.
type CheckpointStore interface {
	SaveCheckpoint(threadID string, state *TaskState) error
	LoadLatest(threadID string) (*TaskState, bool, error)
}

// ConversationLog records run side effects on conversation metadata.
// Implementations must treat AutoTitle as one-way: a non-default title
// is never replaced.
type ConversationLog interface {
	AutoTitle(conversationID, username, message string) (bool, error)
	RecordMessage(conversationID, username string) error
}

// Config assembles an Engine for one conversation.
type Config struct {
	Worker  model.ToolCallingChatModel // drives WORK; bound to tools at construction
	Planner model.ToolCallingChatModel // drives PLAN/EVAL/clarify; defaults to Worker

	Tools         ToolExecutor    // optional; nil disables tool calls
	Checkpoints   CheckpointStore // required
	Conversations ConversationLog // optional; nil skips registry side effects

	Username       string
	ConversationID string
	ThreadID       string

	MaxSteps int              // state transitions per run; default 200
	Now      func() time.Time // injectable clock for the worker prompt
}

// Engine executes runs for a single conversation thread.
type Engine struct {
	worker  model.ToolCallingChatModel
	planner model.ToolCallingChatModel

	tools         ToolExecutor
	checkpoints   CheckpointStore
	conversations ConversationLog

	username       string
	conversationID string
	threadID       string

	maxSteps int
	now      func() time.Time
}

// New builds an Engine, binding the worker model to the available tools.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Worker == nil {
		return nil, fmt.Errorf("engine: worker model is required")
	}
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("engine: checkpoint store is required")
	}
	if cfg.ThreadID == "" {
		return nil, fmt.Errorf("engine: thread id is required")
	}

	worker := cfg.Worker
	if cfg.Tools != nil {
		infos, err := cfg.Tools.Infos(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine: collect tool infos: %w", err)
		}
		if len(infos) > 0 {
			worker, err = cfg.Worker.WithTools(infos)
			if err != nil {
				return nil, fmt.Errorf("engine: bind tools: %w", err)
			}
		}
	}

	planner := cfg.Planner
	if planner == nil {
		planner = cfg.Worker
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 200
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		worker:         worker,
		planner:        planner,
		tools:          cfg.Tools,
		checkpoints:    cfg.Checkpoints,
		conversations:  cfg.Conversations,
		username:       cfg.Username,
		conversationID: cfg.ConversationID,
		threadID:       cfg.ThreadID,
		maxSteps:       maxSteps,
		now:            now,
	}, nil
}

// ThreadID returns the checkpoint thread this engine writes to.
func (e *Engine) ThreadID() string {
	return e.threadID
}

// Run executes one control-loop pass for a user message and returns the
// updated display history. llmMessage is what the model sees (possibly
// augmented with clarifying Q&A context); originalMessage, when non-empty,
// is what the user actually typed and is used for display and titling.
func (e *Engine) Run(ctx context.Context, llmMessage, criteria string, prior []history.Entry, originalMessage string) ([]history.Entry, error) {
	if originalMessage == "" {
		originalMessage = llmMessage
	}

	state, found, err := e.checkpoints.LoadLatest(e.threadID)
	if err != nil {
		return nil, fmt.Errorf("engine: load checkpoint: %w", err)
	}
	if !found {
		state = NewTaskState()
	}
	state.BeginRun(llmMessage, criteria)
	if err := e.checkpoints.SaveCheckpoint(e.threadID, state); err != nil {
		return nil, fmt.Errorf("engine: save checkpoint: %w", err)
	}

	current := nodePlan
	for steps := 0; current != nodeEnd; steps++ {
		if steps >= e.maxSteps {
			return nil, fmt.Errorf("engine: step ceiling (%d) exceeded on thread %s", e.maxSteps, e.threadID)
		}

		next, err := e.step(ctx, current, state)
		if err != nil {
			return nil, err
		}
		if err := e.checkpoints.SaveCheckpoint(e.threadID, state); err != nil {
			return nil, fmt.Errorf("engine: save checkpoint: %w", err)
		}
		current = next
	}

	reply := e.finalReply(state)
	e.recordRun(originalMessage)

	return history.MergeWithDedup(prior,
		history.Entry{Role: history.RoleUser, Content: originalMessage},
		history.Entry{Role: history.RoleAssistant, Content: reply},
	), nil
}

func (e *Engine) step(ctx context.Context, current node, state *TaskState) (node, error) {
	switch current {
	case nodePlan:
		e.plan(ctx, state)
		return nodeWork, nil
	case nodeWork:
		return e.work(ctx, state)
	case nodeTools:
		if err := e.runTools(ctx, state); err != nil {
			return "", err
		}
		return nodeWork, nil
	case nodeEval:
		if err := e.evaluate(ctx, state); err != nil {
			return "", err
		}
		return routeAfterEvaluation(state), nil
	default:
		return "", fmt.Errorf("engine: unknown node %q", current)
	}
}

// routeAfterEvaluation decides where the loop goes after an evaluator pass.
func routeAfterEvaluation(state *TaskState) node {
	if state.SuccessCriteriaMet || state.UserInputNeeded {
		return nodeEnd
	}
	if state.IterationCount >= hardStopIterations {
		return nodeEnd
	}
	if state.PlannerIterations < maxPlannerIterations &&
		(state.IterationCount == replanIteration || containsReplanKeyword(state.FeedbackOnWork)) {
		return nodePlan
	}
	return nodeWork
}

// finalReply extracts the last user-facing assistant message.
func (e *Engine) finalReply(state *TaskState) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := state.Messages[i]
		if m.Role != schema.Assistant || len(m.ToolCalls) > 0 {
			continue
		}
		if strings.TrimSpace(m.Content) == "" || isInternalContent(m.Content) {
			continue
		}
		return m.Content
	}
	return "No response generated."
}

func isInternalContent(content string) bool {
	return strings.HasPrefix(content, evaluatorFeedbackPrefix) ||
		strings.HasPrefix(content, planningPhasePrefix)
}

// recordRun applies the registry side effects of a successful run.
// Failures here never fail the run.
func (e *Engine) recordRun(originalMessage string) {
	if e.conversations == nil || e.conversationID == "" {
		return
	}
	if _, err := e.conversations.AutoTitle(e.conversationID, e.username, originalMessage); err != nil {
		slog.Warn("auto-title failed", "conversation", e.conversationID, "error", err)
	}
	if err := e.conversations.RecordMessage(e.conversationID, e.username); err != nil {
		slog.Warn("message count update failed", "conversation", e.conversationID, "error", err)
	}
}
