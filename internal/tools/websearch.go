package tools

import (
	"context"
	"fmt"
	"log/slog"

	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/tool"

	"github.com/dohr-michael/sidekick/internal/config"
)

// NewWebSearch builds the web_search tool backed by DuckDuckGo text search.
// No API key required.
func NewWebSearch(ctx context.Context, cfg config.WebSearchConfig) (tool.InvokableTool, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	slog.Info("web_search: using DuckDuckGo", "max_results", maxResults)

	t, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search",
		ToolDesc:   "Search the web for current information. Returns titles, URLs, and summaries.",
		MaxResults: maxResults,
		Timeout:    cfg.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: init: %w", err)
	}
	return t, nil
}
