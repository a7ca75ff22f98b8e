// Package agentexec runs one autonomous agent to completion: a reasoning
// loop that dispatches tools, pauses for user input, and always halts
// within a bounded iteration count. The step log is the audit trail a
// consumer renders; it is append-only and never rewritten.
package agentexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cycled/internal/events"
	"cycled/internal/inference"
	"cycled/internal/logging"
	"cycled/internal/tools"
)

// DefaultMaxLoops bounds the reasoning loop when the caller does not.
const DefaultMaxLoops = 25

// ErrIterationBudget is the terminal error when the loop hits its
// iteration cap without completing.
var ErrIterationBudget = errors.New("max loops exceeded")

// ErrNotWaiting is returned by ProvideUserInput outside a user-input
// pause.
var ErrNotWaiting = errors.New("executor is not waiting for user input")

// ErrAlreadyRunning is returned by Start while a run is in flight.
var ErrAlreadyRunning = errors.New("executor already running")

// Executor drives the infinite-mode loop for a single agent.
type Executor struct {
	client   inference.Client
	model    string
	registry *tools.Registry
	bus      *events.Bus
	maxLoops int
	opts     inference.Options

	log stepLog

	mu        sync.Mutex
	running   bool
	waiting   bool
	cancel    context.CancelFunc
	userInput chan string
	done      chan struct{}
}

// NewExecutor wires an executor to its reasoning model and tool registry.
// maxLoops <= 0 selects DefaultMaxLoops. The bus may be nil.
func NewExecutor(client inference.Client, model string, registry *tools.Registry, bus *events.Bus, maxLoops int) *Executor {
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}
	return &Executor{
		client:   client,
		model:    model,
		registry: registry,
		bus:      bus,
		maxLoops: maxLoops,
	}
}

// SetOptions tunes the per-invocation inference options. Safe to call
// while a run is in flight; the next invocation picks up the change.
func (e *Executor) SetOptions(opts inference.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts
}

func (e *Executor) options() inference.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// IsRunning reports whether a loop is in flight.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// WaitingForUser reports whether the loop is paused on a user question.
func (e *Executor) WaitingForUser() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiting
}

// Steps returns a snapshot of the audit trail.
func (e *Executor) Steps() []Step { return e.log.snapshot() }

// Start resets the step log and launches the loop in the background.
// It fails when a run is already active.
func (e *Executor) Start(task, workingDirectory string) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.running = true
	e.waiting = false
	e.cancel = cancel
	e.userInput = make(chan string, 1)
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.log.reset()
	e.log.append(Step{Kind: StepSystem, Content: "task: " + task})

	go e.run(ctx, task, workingDirectory)
	return nil
}

// Stop requests cooperative cancellation and waits for the loop to append
// its terminal step and exit. Stopping an idle executor is a no-op.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	<-done
}

// Wait blocks until the current run exits. Returns immediately when idle.
func (e *Executor) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ProvideUserInput resumes a loop paused on a user question. Valid only
// while WaitingForUser is true.
func (e *Executor) ProvideUserInput(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || !e.waiting {
		return ErrNotWaiting
	}
	e.waiting = false
	e.userInput <- text
	return nil
}

// =============================================================================
// REASONING LOOP
// =============================================================================

func (e *Executor) run(ctx context.Context, task, workingDirectory string) {
	log := logging.L(logging.CategoryAgent)

	defer func() {
		e.mu.Lock()
		e.running = false
		e.waiting = false
		close(e.done)
		e.mu.Unlock()
	}()

	for iteration := 0; ; iteration++ {
		if ctx.Err() != nil {
			e.log.append(Step{Kind: StepComplete, Content: "stopped by user"})
			return
		}
		if iteration >= e.maxLoops {
			e.terminate(StepError, ErrIterationBudget.Error())
			return
		}

		prompt := e.composePrompt(task, workingDirectory)
		resp, err := e.client.Invoke(ctx, e.model, e.systemPrompt(), prompt, e.options())
		if err != nil {
			if ctx.Err() != nil {
				e.log.append(Step{Kind: StepComplete, Content: "stopped by user"})
				return
			}
			e.terminate(StepError, "model invocation failed: "+err.Error())
			return
		}

		action, err := ParseAction(resp.Text)
		if err != nil {
			// A garbled action is recoverable: feed the parse failure
			// back so the model can correct itself.
			e.log.append(Step{Kind: StepThinking, Content: resp.Text})
			e.log.append(Step{Kind: StepSystem, Content: "could not parse action: " + err.Error()})
			continue
		}
		if action.Thinking != "" {
			e.log.append(Step{Kind: StepThinking, Content: action.Thinking})
		}

		switch action.Type {
		case ActionTool:
			e.dispatchTool(ctx, action)

		case ActionAskUser:
			e.log.append(Step{Kind: StepUserInput, Content: action.Message})
			e.publish(events.KindProgress, action.Message)

			e.mu.Lock()
			e.waiting = true
			e.mu.Unlock()

			select {
			case answer := <-e.userInput:
				e.log.append(Step{Kind: StepSystem, Content: "user: " + answer})
			case <-ctx.Done():
				e.mu.Lock()
				e.waiting = false
				e.mu.Unlock()
				e.log.append(Step{Kind: StepComplete, Content: "stopped by user"})
				return
			}

		case ActionComplete:
			e.terminate(StepComplete, action.Message)
			return
		}

		log.Debugw("iteration done", "iteration", iteration, "action", action.Type)
	}
}

// dispatchTool executes the named tool. Failures are observations, never
// fatal; the model sees the error text next iteration.
func (e *Executor) dispatchTool(ctx context.Context, action *Action) {
	result, err := e.registry.Execute(ctx, action.Tool, action.Args)

	step := Step{Kind: StepTool, ToolName: action.Tool, ToolInput: action.Args}
	if err != nil {
		step.Content = "tool error: " + err.Error()
	} else if result.Err != nil {
		step.Content = "tool error: " + result.Err.Error()
	} else {
		step.Content = result.Output
	}
	e.log.append(step)
	e.publish(events.KindStepCompleted, action.Tool)
}

func (e *Executor) terminate(kind StepKind, content string) {
	e.log.append(Step{Kind: kind, Content: content})
	if kind == StepError {
		e.publish(events.KindError, content)
	} else {
		e.publish(events.KindStepCompleted, content)
	}
}

func (e *Executor) publish(kind events.Kind, msg string) {
	if e.bus != nil {
		e.bus.Publish(events.Event{Kind: kind, Agent: e.model, Message: msg, Timestamp: time.Now()})
	}
}

// =============================================================================
// PROMPT COMPOSITION
// =============================================================================

func (e *Executor) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an autonomous agent. Each turn, respond with exactly one JSON action:\n")
	sb.WriteString(`{"type":"tool","tool":"<name>","args":{...},"thinking":"..."} to use a tool,` + "\n")
	sb.WriteString(`{"type":"ask_user","message":"..."} to ask the user a question,` + "\n")
	sb.WriteString(`{"type":"complete","message":"..."} when the task is done.` + "\n\n")
	sb.WriteString("Available tools:\n")
	sb.WriteString(e.registry.Describe())
	return sb.String()
}

// composePrompt builds the per-iteration prompt from the task, the full
// step history, and a listing of the working directory.
func (e *Executor) composePrompt(task, workingDirectory string) string {
	var sb strings.Builder
	sb.WriteString("Task: " + task + "\n")

	if workingDirectory != "" {
		sb.WriteString("\nWorking directory: " + workingDirectory + "\n")
		if listing := listDirectory(workingDirectory, 40); listing != "" {
			sb.WriteString("Files:\n" + listing)
		}
	}

	steps := e.log.snapshot()
	if len(steps) > 1 {
		sb.WriteString("\nHistory:\n")
		for _, s := range steps[1:] { // skip the initial system step
			switch s.Kind {
			case StepTool:
				fmt.Fprintf(&sb, "[tool %s] %s\n", s.ToolName, truncate(s.Content, 2000))
			default:
				fmt.Fprintf(&sb, "[%s] %s\n", s.Kind, truncate(s.Content, 2000))
			}
		}
	}

	sb.WriteString("\nNext action:")
	return sb.String()
}

func listDirectory(dir string, limit int) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for i, entry := range entries {
		if i >= limit {
			sb.WriteString("...\n")
			break
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		sb.WriteString("  " + name + "\n")
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}
