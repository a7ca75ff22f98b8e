package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// RunShellTool returns a tool for executing shell commands.
func RunShellTool() *Tool {
	return &Tool{
		Name:        "run_shell",
		Description: "Execute a shell command and return its output",
		Category:    CategoryShell,
		Execute:     executeRunShell,
		Schema: Schema{
			Required: []string{"command"},
			Properties: map[string]Property{
				"command":         {Type: "string", Description: "The command to execute"},
				"working_dir":     {Type: "string", Description: "Working directory for the command"},
				"timeout_seconds": {Type: "integer", Description: "Timeout in seconds (default: 60)", Default: 60},
			},
		},
	}
}

func executeRunShell(ctx context.Context, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	workingDir, _ := args["working_dir"].(string)

	timeout := 60
	switch t := args["timeout_seconds"].(type) {
	case int:
		if t > 0 {
			timeout = t
		}
	case float64:
		if t > 0 {
			timeout = int(t)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", command)
	}
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}
	const maxOutput = 50_000
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n...[truncated]"
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("command timed out after %d seconds", timeout)
		}
		return output, fmt.Errorf("command failed: %w", err)
	}
	return output, nil
}
