package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// maxReadBytes caps read_file output so a large file cannot blow up the
// model context.
const maxReadBytes = 256 * 1024

// sandbox confines the file tools to a single directory tree. Paths are
// interpreted relative to the root; traversal outside it is impossible.
type sandbox struct {
	root string
}

// resolve maps a user-supplied path into the sandbox. Rooting the path at
// "/" before cleaning neutralizes any ".." segments.
func (s *sandbox) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is required")
	}
	return filepath.Join(s.root, filepath.Clean("/"+p)), nil
}

// rel converts an absolute sandbox path back to its user-facing form.
func (s *sandbox) rel(abs string) string {
	r, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}

// NewFileTools returns the read_file, write_file, and list_files tools, all
// confined to root. The root directory is created if missing.
func NewFileTools(root string) ([]tool.InvokableTool, error) {
	if root == "" {
		return nil, fmt.Errorf("file tools: sandbox root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("file tools: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("file tools: create sandbox: %w", err)
	}

	sb := &sandbox{root: abs}
	return []tool.InvokableTool{
		&readFileTool{sb},
		&writeFileTool{sb},
		&listFilesTool{sb},
	}, nil
}

type readFileTool struct{ sb *sandbox }

func (t *readFileTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "read_file",
		Desc: "Read a text file from the working directory.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {Type: schema.String, Desc: "File path relative to the working directory", Required: true},
		}),
	}, nil
}

func (t *readFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("read_file: parse input: %w", err)
	}
	p, err := t.sb.resolve(input.Path)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
	}
	return string(data), nil
}

type writeFileTool struct{ sb *sandbox }

func (t *writeFileTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "write_file",
		Desc: "Write content to a file in the working directory, creating parent directories as needed.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path":    {Type: schema.String, Desc: "File path relative to the working directory", Required: true},
			"content": {Type: schema.String, Desc: "The content to write", Required: true},
		}),
	}, nil
}

func (t *writeFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("write_file: parse input: %w", err)
	}
	p, err := t.sb.resolve(input.Path)
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("write_file: create parent: %w", err)
	}
	if err := os.WriteFile(p, []byte(input.Content), 0o644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(input.Content), t.sb.rel(p)), nil
}

type listFilesTool struct{ sb *sandbox }

func (t *listFilesTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "list_files",
		Desc: "List files in a directory inside the working directory.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {Type: schema.String, Desc: "Directory path relative to the working directory; defaults to the root", Required: false},
		}),
	}, nil
}

func (t *listFilesTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if argumentsInJSON != "" {
		if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
			return "", fmt.Errorf("list_files: parse input: %w", err)
		}
	}
	if input.Path == "" {
		input.Path = "."
	}
	p, err := t.sb.resolve(input.Path)
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(names, "\n"), nil
}

var (
	_ tool.InvokableTool = (*readFileTool)(nil)
	_ tool.InvokableTool = (*writeFileTool)(nil)
	_ tool.InvokableTool = (*listFilesTool)(nil)
)
