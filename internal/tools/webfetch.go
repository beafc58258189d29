package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/config"
)

// WebFetch fetches a URL over HTTPS and returns its readable text.
type WebFetch struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewWebFetch builds the web_fetch tool.
func NewWebFetch(cfg config.WebFetchConfig) *WebFetch {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxKB := cfg.MaxBodyKB
	if maxKB <= 0 {
		maxKB = 512
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Sidekick/1.0 (web_fetch)"
	}

	return &WebFetch{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  int64(maxKB) * 1024,
		userAgent: ua,
	}
}

type webFetchInput struct {
	URL string `json:"url"`
}

type webFetchOutput struct {
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Content string `json:"content"`
}

func (t *WebFetch) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "web_fetch",
		Desc: "Fetch a URL and return its text content. HTTP URLs are upgraded to HTTPS. Content is truncated to the configured limit.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url": {
				Type:     schema.String,
				Desc:     "The URL to fetch",
				Required: true,
			},
		}),
	}, nil
}

func (t *WebFetch) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input webFetchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("web_fetch: parse input: %w", err)
	}
	if input.URL == "" {
		return "", fmt.Errorf("web_fetch: url is required")
	}

	url := input.URL
	if rest, found := strings.CutPrefix(url, "http://"); found {
		url = "https://" + rest
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("web_fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,*/*")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web_fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes))
	if err != nil {
		return "", fmt.Errorf("web_fetch: read body: %w", err)
	}

	content := truncateUTF8(htmlToText(string(body)), int(t.maxBytes))

	out, err := json.Marshal(webFetchOutput{URL: url, Status: resp.StatusCode, Content: content})
	if err != nil {
		return "", fmt.Errorf("web_fetch: marshal result: %w", err)
	}
	return string(out), nil
}

var _ tool.InvokableTool = (*WebFetch)(nil)

// blockTags start a new line in the extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "section": true, "article": true,
}

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ", "&#160;", " ",
	"&amp;", "&", "&lt;", "<", "&gt;", ">",
	"&quot;", `"`, "&#39;", "'", "&apos;", "'",
)

// truncateUTF8 cuts s to at most max bytes without splitting a rune. Model
// providers reject requests carrying invalid UTF-8.
func truncateUTF8(s string, max int) string {
	if max < 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// htmlToText strips markup and collapses whitespace, keeping block
// boundaries as newlines. Script and style bodies are dropped entirely.
func htmlToText(html string) string {
	var sb strings.Builder
	sb.Grow(len(html) / 2)

	rest := html
	skipUntil := "" // closing tag whose body we are discarding
	for {
		before, after, found := strings.Cut(rest, "<")
		if skipUntil == "" {
			writeCollapsed(&sb, before)
		}
		if !found {
			break
		}

		tag, remainder, closed := strings.Cut(after, ">")
		if !closed {
			break
		}
		name := tagName(tag)

		switch {
		case skipUntil != "":
			if name == skipUntil {
				skipUntil = ""
			}
		case name == "script":
			skipUntil = "/script"
		case name == "style":
			skipUntil = "/style"
		case blockTags[strings.TrimPrefix(name, "/")]:
			sb.WriteByte('\n')
		}
		rest = remainder
	}

	text := htmlEntities.Replace(sb.String())
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func tagName(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for i, r := range tag {
		if r == ' ' || r == '\t' || r == '\n' || r == '/' && i > 0 {
			return tag[:i]
		}
	}
	return tag
}

func writeCollapsed(sb *strings.Builder, s string) {
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
}
