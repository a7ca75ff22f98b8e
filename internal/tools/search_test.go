package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchCodebaseTool(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"main.go":         "package main\n\nfunc main() {\n\tprintln(\"needle here\")\n}\n",
		"util.go":         "package main\n\nfunc helper() string { return \"clean\" }\n",
		"sub/deep.go":     "package sub\n\n// needle in a comment\n",
		".git/needle":     "needle inside git dir\n",
		"vendor/dep.go":   "needle inside vendor\n",
		".cycled/work.db": "needle inside workspace state\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := SearchCodebaseTool().Execute(context.Background(), map[string]any{
		"pattern": "needle",
		"path":    dir,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(out, "main.go") {
		t.Error("expected hit in main.go")
	}
	if !strings.Contains(out, "deep.go") {
		t.Error("expected hit in sub/deep.go")
	}
	if strings.Contains(out, ".git") {
		t.Error("matches inside .git should be skipped")
	}
	if strings.Contains(out, "vendor") {
		t.Error("matches inside vendor should be skipped")
	}
	if strings.Contains(out, ".cycled") {
		t.Error("matches inside the workspace state dir should be skipped")
	}
	if strings.Contains(out, "util.go") {
		t.Error("util.go has no match and should not appear")
	}
}

func TestSearchCodebaseToolMaxResults(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("target line\n")
	}
	if err := os.WriteFile(filepath.Join(dir, "many.txt"), []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := SearchCodebaseTool().Execute(context.Background(), map[string]any{
		"pattern":     "target",
		"path":        dir,
		"max_results": 5,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if n := strings.Count(out, "many.txt"); n > 5 {
		t.Errorf("got %d results, want at most 5", n)
	}
}

func TestSearchCodebaseToolNoMatches(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := SearchCodebaseTool().Execute(context.Background(), map[string]any{
		"pattern": "zzz_absent",
		"path":    dir,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "no matches") {
		t.Errorf("expected a no-matches message, got %q", out)
	}
}
