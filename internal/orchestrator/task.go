package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cycled/internal/catalog"
)

// =============================================================================
// TASK TYPES
// =============================================================================

// TaskContext carries the working state of a run. Pipeline steps append
// the prior step's output under a synthetic file name so later agents see
// the accumulated history.
type TaskContext struct {
	WorkingDirectory string
	Files            map[string]string
}

// NewTaskContext returns a context rooted at dir with an empty file set.
func NewTaskContext(dir string) *TaskContext {
	return &TaskContext{WorkingDirectory: dir, Files: make(map[string]string)}
}

// Clone returns an independent copy so a run never mutates the caller's
// context.
func (tc *TaskContext) Clone() *TaskContext {
	files := make(map[string]string, len(tc.Files))
	for k, v := range tc.Files {
		files[k] = v
	}
	return &TaskContext{WorkingDirectory: tc.WorkingDirectory, Files: files}
}

// RenderFiles flattens the context files into a prompt section, omitting
// the named keys. Files render in sorted order so step prompts are
// deterministic.
func (tc *TaskContext) RenderFiles(skip ...string) string {
	if len(tc.Files) == 0 {
		return ""
	}
	omit := make(map[string]bool, len(skip))
	for _, k := range skip {
		omit[k] = true
	}
	keys := make([]string, 0, len(tc.Files))
	for k := range tc.Files {
		if !omit[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", k, tc.Files[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// TaskResult is the immutable record of one completed step.
type TaskResult struct {
	Output          string
	AgentID         string
	ExecutionTime   time.Duration
	ModelSwitchTime time.Duration
	TokensUsed      int
}

// =============================================================================
// RUN STATE
// =============================================================================

// RunState names the phase an orchestration run is in.
type RunState string

const (
	StateIdle           RunState = "idle"
	StatePlanning       RunState = "planning"
	StateExecuting      RunState = "executing"
	StateSwitchingModel RunState = "switching_model"
	StateCompleted      RunState = "completed"
	StateFailed         RunState = "failed"
)

// Progress is the pollable snapshot of a run, also carried on the event
// bus after every step.
type Progress struct {
	State         RunState
	Fraction      float64
	StatusMessage string
	Results       []TaskResult
}

// OrchestrationStatistics is the running aggregate over all runs of a
// manager instance.
type OrchestrationStatistics struct {
	AvailableRAMGB    float64
	CanRunParallel    bool
	ModelSwitchCount  int64
	AverageSwitchTime time.Duration
	WarmAgent         catalog.Role
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRunActive is returned when PlanAndExecute is called while a run
	// is already in flight.
	ErrRunActive = errors.New("an orchestration run is already active")

	// ErrNoAgents is returned when the pool has no enabled agent that can
	// serve the task.
	ErrNoAgents = errors.New("no enabled agents available")

	// ErrUnknownAgent is returned when an explicit agent list names a role
	// absent from the pool.
	ErrUnknownAgent = errors.New("agent not in pool")
)

// TaskExecutionError wraps a model invocation failure with the step it
// aborted.
type TaskExecutionError struct {
	Agent catalog.Role
	Step  int
	Err   error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task execution failed at step %d (%s): %v", e.Step, e.Agent, e.Err)
}

func (e *TaskExecutionError) Unwrap() error { return e.Err }
