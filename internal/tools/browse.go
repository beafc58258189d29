package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dohr-michael/sidekick/internal/browser"
)

// browsePageMaxChars caps the extracted page text.
const browsePageMaxChars = 64 * 1024

// BrowsePage loads a URL in the shared headless browser and returns the
// rendered page text. Unlike web_fetch, this executes JavaScript.
type BrowsePage struct {
	pool *browser.Pool
}

// NewBrowsePage builds the browse_page tool.
func NewBrowsePage(pool *browser.Pool) *BrowsePage {
	return &BrowsePage{pool: pool}
}

func (t *BrowsePage) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "browse_page",
		Desc: "Load a page in a headless browser and return its rendered text. Use for pages that require JavaScript.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url": {Type: schema.String, Desc: "The URL to load", Required: true},
		}),
	}, nil
}

type browsePageOutput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (t *BrowsePage) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("browse_page: parse input: %w", err)
	}
	if input.URL == "" {
		return "", fmt.Errorf("browse_page: url is required")
	}
	if !strings.HasPrefix(input.URL, "http://") && !strings.HasPrefix(input.URL, "https://") {
		input.URL = "https://" + input.URL
	}

	b, err := t.pool.Acquire()
	if err != nil {
		return "", fmt.Errorf("browse_page: %w", err)
	}
	defer t.pool.Release()

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: input.URL})
	if err != nil {
		return "", fmt.Errorf("browse_page: open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("browse_page: wait load: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("browse_page: page info: %w", err)
	}

	res, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("browse_page: extract text: %w", err)
	}
	text := truncateUTF8(res.Value.Str(), browsePageMaxChars)

	out, err := json.Marshal(browsePageOutput{URL: info.URL, Title: info.Title, Text: text})
	if err != nil {
		return "", fmt.Errorf("browse_page: marshal result: %w", err)
	}
	return string(out), nil
}

var _ tool.InvokableTool = (*BrowsePage)(nil)
