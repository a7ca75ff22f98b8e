package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// searchConcurrency bounds the number of files scanned in parallel.
const searchConcurrency = 8

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".cycled": true,
}

// SearchCodebaseTool returns a tool that greps a directory tree for a
// substring, scanning files concurrently.
func SearchCodebaseTool() *Tool {
	return &Tool{
		Name:        "search_codebase",
		Description: "Search files under a directory for a text pattern",
		Category:    CategorySearch,
		Execute:     executeSearch,
		Schema: Schema{
			Required: []string{"pattern", "path"},
			Properties: map[string]Property{
				"pattern":     {Type: "string", Description: "Substring to search for"},
				"path":        {Type: "string", Description: "Root directory to search"},
				"max_results": {Type: "integer", Description: "Result cap (default 50)", Default: 50},
			},
		},
	}
}

type searchHit struct {
	file string
	line int
	text string
}

func executeSearch(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	root, _ := args["path"].(string)
	if pattern == "" || root == "" {
		return "", fmt.Errorf("pattern and path are required")
	}

	maxResults := 50
	if mr, ok := args["max_results"].(int); ok && mr > 0 {
		maxResults = mr
	} else if mr, ok := args["max_results"].(float64); ok && mr > 0 {
		maxResults = int(mr)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk failed: %w", err)
	}

	var mu sync.Mutex
	var hits []searchHit

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchConcurrency)
	for _, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			fileHits := scanFile(file, pattern, maxResults)
			if len(fileHits) == 0 {
				return nil
			}
			mu.Lock()
			hits = append(hits, fileHits...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].file != hits[j].file {
			return hits[i].file < hits[j].file
		}
		return hits[i].line < hits[j].line
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	if len(hits) == 0 {
		return "no matches", nil
	}
	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "%s:%d: %s\n", h.file, h.line, strings.TrimSpace(h.text))
	}
	return sb.String(), nil
}

func scanFile(path, pattern string, limit int) []searchHit {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var hits []searchHit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.Contains(scanner.Text(), pattern) {
			hits = append(hits, searchHit{file: path, line: lineNo, text: scanner.Text()})
			if len(hits) >= limit {
				break
			}
		}
	}
	return hits
}
