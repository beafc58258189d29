package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/tool"
)

func fileToolSet(t *testing.T) (read, write, list tool.InvokableTool, root string) {
	t.Helper()
	root = t.TempDir()
	set, err := NewFileTools(root)
	if err != nil {
		t.Fatalf("NewFileTools: %v", err)
	}
	return set[0], set[1], set[2], root
}

func TestFileTools_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	read, write, _, _ := fileToolSet(t)

	out, err := write.InvokableRun(ctx, `{"path":"notes/report.md","content":"# Report\nhello"}`)
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if !strings.Contains(out, "notes/report.md") {
		t.Errorf("write output should name the file: %q", out)
	}

	got, err := read.InvokableRun(ctx, `{"path":"notes/report.md"}`)
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if got != "# Report\nhello" {
		t.Fatalf("read content: %q", got)
	}
}

func TestFileTools_TraversalConfined(t *testing.T) {
	ctx := context.Background()
	read, write, _, root := fileToolSet(t)

	// Plant a file outside the sandbox; traversal must not reach it.
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got, err := read.InvokableRun(ctx, `{"path":"../secret.txt"}`); err == nil {
		t.Fatalf("traversal read must fail inside the sandbox, got %q", got)
	}

	if _, err := write.InvokableRun(ctx, `{"path":"../../escape.txt","content":"x"}`); err != nil {
		t.Fatalf("write_file: %v", err)
	}
	// The write lands inside the sandbox, not above it.
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err != nil {
		t.Fatalf("traversal write did not land in the sandbox: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.txt")); err == nil {
		t.Fatal("traversal write escaped the sandbox")
	}
}

func TestFileTools_ListFiles(t *testing.T) {
	ctx := context.Background()
	_, write, list, _ := fileToolSet(t)

	if _, err := write.InvokableRun(ctx, `{"path":"b.txt","content":"b"}`); err != nil {
		t.Fatal(err)
	}
	if _, err := write.InvokableRun(ctx, `{"path":"a.txt","content":"a"}`); err != nil {
		t.Fatal(err)
	}
	if _, err := write.InvokableRun(ctx, `{"path":"sub/c.txt","content":"c"}`); err != nil {
		t.Fatal(err)
	}

	out, err := list.InvokableRun(ctx, `{}`)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	if out != "a.txt\nb.txt\nsub/" {
		t.Fatalf("listing: %q", out)
	}

	sub, err := list.InvokableRun(ctx, `{"path":"sub"}`)
	if err != nil {
		t.Fatalf("list_files sub: %v", err)
	}
	if sub != "c.txt" {
		t.Fatalf("sub listing: %q", sub)
	}
}

func TestFileTools_ListEmptyAndMissing(t *testing.T) {
	ctx := context.Background()
	_, _, list, _ := fileToolSet(t)

	out, err := list.InvokableRun(ctx, `{}`)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	if out != "(empty directory)" {
		t.Fatalf("empty listing: %q", out)
	}

	if _, err := list.InvokableRun(ctx, `{"path":"missing"}`); err == nil {
		t.Fatal("listing a missing directory must fail")
	}
}

func TestFileTools_PathRequired(t *testing.T) {
	ctx := context.Background()
	read, write, _, _ := fileToolSet(t)

	if _, err := read.InvokableRun(ctx, `{"path":""}`); err == nil {
		t.Fatal("read_file without path must fail")
	}
	if _, err := write.InvokableRun(ctx, `{"path":"  ","content":"x"}`); err == nil {
		t.Fatal("write_file with blank path must fail")
	}
}
