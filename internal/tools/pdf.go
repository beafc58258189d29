package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/go-rod/rod/lib/proto"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dohr-michael/sidekick/internal/browser"
)

// pdfPageStyle keeps the rendered document readable when printed.
const pdfPageStyle = `<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2em; line-height: 1.5; }
pre { background: #f4f4f4; padding: 1em; overflow-x: auto; }
code { font-family: "SF Mono", Consolas, monospace; font-size: 0.9em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
</style>`

// MarkdownToPDF renders markdown to a PDF file in the sandbox using the
// shared headless browser.
type MarkdownToPDF struct {
	sb   *sandbox
	pool *browser.Pool
	md   goldmark.Markdown
}

// NewMarkdownToPDF builds the markdown_to_pdf tool.
func NewMarkdownToPDF(sandboxRoot string, pool *browser.Pool) (*MarkdownToPDF, error) {
	abs, err := filepath.Abs(sandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: resolve sandbox: %w", err)
	}
	return &MarkdownToPDF{
		sb:   &sandbox{root: abs},
		pool: pool,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

func (t *MarkdownToPDF) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "markdown_to_pdf",
		Desc: "Convert markdown text to a PDF file saved in the working directory.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"markdown": {Type: schema.String, Desc: "The markdown content to convert", Required: true},
			"filename": {Type: schema.String, Desc: "Output file name, e.g. report.pdf", Required: true},
		}),
	}, nil
}

func (t *MarkdownToPDF) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Markdown string `json:"markdown"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("markdown_to_pdf: parse input: %w", err)
	}
	if strings.TrimSpace(input.Markdown) == "" {
		return "", fmt.Errorf("markdown_to_pdf: markdown is required")
	}
	if input.Filename == "" {
		input.Filename = "output.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(input.Filename), ".pdf") {
		input.Filename += ".pdf"
	}
	out, err := t.sb.resolve(input.Filename)
	if err != nil {
		return "", fmt.Errorf("markdown_to_pdf: %w", err)
	}

	html, err := t.renderHTML(input.Markdown)
	if err != nil {
		return "", err
	}

	pdf, err := t.printPDF(ctx, html)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("markdown_to_pdf: create parent: %w", err)
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return "", fmt.Errorf("markdown_to_pdf: write file: %w", err)
	}
	return fmt.Sprintf("PDF written to %s (%d bytes)", t.sb.rel(out), len(pdf)), nil
}

func (t *MarkdownToPDF) renderHTML(markdown string) (string, error) {
	var body bytes.Buffer
	if err := t.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("markdown_to_pdf: convert markdown: %w", err)
	}
	return "<!DOCTYPE html><html><head><meta charset=\"utf-8\">" +
		pdfPageStyle + "</head><body>" + body.String() + "</body></html>", nil
}

func (t *MarkdownToPDF) printPDF(ctx context.Context, html string) ([]byte, error) {
	b, err := t.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: %w", err)
	}
	defer t.pool.Release()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: dataURL})
	if err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: print: %w", err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("markdown_to_pdf: read pdf: %w", err)
	}
	return pdf, nil
}

var _ tool.InvokableTool = (*MarkdownToPDF)(nil)
