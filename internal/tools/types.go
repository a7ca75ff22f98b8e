// Package tools provides the named tools the infinite-mode agent can
// dispatch to: file operations, shell execution, codebase search,
// screenshots, and delegation to specialist agents.
//
// Tools are plain values registered in a Registry; the executor selects
// them by name from the model's action output.
package tools

import "context"

// Category classifies tools for capability-based filtering.
type Category string

const (
	CategoryFile      Category = "file"
	CategoryShell     Category = "shell"
	CategorySearch    Category = "search"
	CategoryVision    Category = "vision"
	CategoryDelegate  Category = "delegate"
	CategoryGeneral   Category = "general"
)

// Property describes a single argument for the tool schema. The schema is
// surfaced to the reasoning model so it can emit valid tool calls.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Schema defines a tool's expected arguments.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one dispatchable capability.
type Tool struct {
	Name        string
	Description string
	Category    Category
	Execute     ExecuteFunc
	Schema      Schema
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result wraps a tool execution with metadata.
type Result struct {
	ToolName   string
	Output     string
	Err        error
	DurationMs int64
}

// IsSuccess reports whether the tool ran without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}
