package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadFileTool returns a tool for reading file contents.
func ReadFileTool() *Tool {
	return &Tool{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Category:    CategoryFile,
		Execute:     executeReadFile,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "The file path to read"},
			},
		},
	}
}

func executeReadFile(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	const maxBytes = 100_000
	if len(content) > maxBytes {
		return string(content[:maxBytes]) + "\n...[truncated]", nil
	}
	return string(content), nil
}

// WriteFileTool returns a tool for writing content to a file.
func WriteFileTool() *Tool {
	return &Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating it if it doesn't exist",
		Category:    CategoryFile,
		Execute:     executeWriteFile,
		Schema: Schema{
			Required: []string{"path", "content"},
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "The file path to write"},
				"content": {Type: "string", Description: "The content to write"},
			},
		},
	}
}

func executeWriteFile(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	content, _ := args["content"].(string)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// ListDirTool returns a tool listing directory entries.
func ListDirTool() *Tool {
	return &Tool{
		Name:        "list_dir",
		Description: "List the entries of a directory",
		Category:    CategoryFile,
		Execute:     executeListDir,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "The directory to list"},
			},
		},
	}
}

func executeListDir(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
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
	return strings.Join(names, "\n"), nil
}
