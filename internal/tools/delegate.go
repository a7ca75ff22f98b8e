package tools

import (
	"context"
	"fmt"
)

// Delegator hands a task to a specialist agent. The orchestrator implements
// this; taking an interface here keeps tools free of an orchestrator import.
type Delegator interface {
	Delegate(ctx context.Context, role string, task string) (string, error)
}

// DelegateRoles are the specialist roles exposed as delegate_to_* tools.
var DelegateRoles = []string{"coder", "researcher", "vision"}

// DelegateTool returns a delegate_to_<role> tool backed by the given delegator.
func DelegateTool(role string, d Delegator) *Tool {
	return &Tool{
		Name:        "delegate_to_" + role,
		Description: fmt.Sprintf("Hand a subtask to the %s specialist and return its result", role),
		Category:    CategoryDelegate,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			task, _ := args["task"].(string)
			if task == "" {
				return "", fmt.Errorf("task is required")
			}
			return d.Delegate(ctx, role, task)
		},
		Schema: Schema{
			Required: []string{"task"},
			Properties: map[string]Property{
				"task": {Type: "string", Description: "The subtask to delegate"},
			},
		},
	}
}

// RegisterDelegates adds a delegate tool per specialist role.
func RegisterDelegates(r *Registry, d Delegator) error {
	for _, role := range DelegateRoles {
		if err := r.Register(DelegateTool(role, d)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBuiltins adds the standard local tools.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(ReadFileTool())
	r.MustRegister(WriteFileTool())
	r.MustRegister(ListDirTool())
	r.MustRegister(SearchCodebaseTool())
	r.MustRegister(RunShellTool())
	r.MustRegister(TakeScreenshotTool())
}
