// Package tools implements the native tool set exposed to the worker model
// and the registry that dispatches tool calls.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Registry holds the registered tools and dispatches calls by name.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]registered
}

type registered struct {
	info *schema.ToolInfo
	tool tool.InvokableTool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registered)}
}

// Register adds a tool, resolving its info once. Duplicate names are rejected.
func (r *Registry) Register(ctx context.Context, t tool.InvokableTool) error {
	info, err := t.Info(ctx)
	if err != nil {
		return fmt.Errorf("tools: resolve info: %w", err)
	}
	if info.Name == "" {
		return fmt.Errorf("tools: tool has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("tools: duplicate tool %q", info.Name)
	}
	r.tools[info.Name] = registered{info: info, tool: t}
	r.order = append(r.order, info.Name)
	return nil
}

// Infos returns the tool infos in registration order, for model binding.
func (r *Registry) Infos(context.Context) ([]*schema.ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.tools[name].info)
	}
	return infos, nil
}

// Execute runs the named tool with the given JSON arguments.
func (r *Registry) Execute(ctx context.Context, name, argumentsJSON string) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("tools: unknown tool %q", name)
	}
	return entry.tool.InvokableRun(ctx, argumentsJSON)
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
