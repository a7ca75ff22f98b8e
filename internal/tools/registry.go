package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cycled/internal/logging"
)

// Registry holds the available tools. Thread-safe; tools may be registered
// at runtime (delegation tools are added after the orchestrator exists).
// Registries are passed explicitly to their consumers, never shared through
// package state.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.L(logging.CategoryTools).Debugw("registered tool",
		"name", tool.Name, "category", tool.Category)
	return nil
}

// MustRegister registers a tool and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name. The returned Result always carries the tool
// name and duration, even on failure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	start := time.Now()
	if err := validateArgs(tool, args); err != nil {
		return &Result{ToolName: name, Err: err, DurationMs: time.Since(start).Milliseconds()}, err
	}

	logging.L(logging.CategoryTools).Debugw("executing tool", "name", name)
	output, err := tool.Execute(ctx, args)
	duration := time.Since(start)
	logging.L(logging.CategoryTools).Debugw("tool completed",
		"name", name, "duration", duration, "success", err == nil)

	return &Result{
		ToolName:   name,
		Output:     output,
		Err:        err,
		DurationMs: duration.Milliseconds(),
	}, err
}

func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}

// Describe renders a short usage listing for prompt assembly.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for _, name := range names {
		t := r.tools[name]
		out += fmt.Sprintf("- %s: %s", t.Name, t.Description)
		if len(t.Schema.Required) > 0 {
			out += fmt.Sprintf(" (required args: %v)", t.Schema.Required)
		}
		out += "\n"
	}
	return out
}
