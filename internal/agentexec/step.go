package agentexec

import (
	"sync"
	"time"
)

// StepKind tags one entry in the executor's audit trail.
type StepKind string

const (
	StepSystem    StepKind = "system"
	StepThinking  StepKind = "thinking"
	StepTool      StepKind = "tool"
	StepUserInput StepKind = "user_input"
	StepError     StepKind = "error"
	StepComplete  StepKind = "complete"
)

// Step is one entry of the append-only run log. Tool steps carry the
// dispatch record; other kinds use only Content.
type Step struct {
	Kind      StepKind
	Content   string
	ToolName  string
	ToolInput map[string]any
	Timestamp time.Time
}

// IsTerminal reports whether the step ends a run.
func (s Step) IsTerminal() bool {
	return s.Kind == StepComplete || s.Kind == StepError
}

// stepLog is the append-only audit trail. Consumers read snapshots; steps
// are never mutated after append.
type stepLog struct {
	mu    sync.Mutex
	steps []Step
}

func (l *stepLog) append(s Step) {
	s.Timestamp = time.Now()
	l.mu.Lock()
	l.steps = append(l.steps, s)
	l.mu.Unlock()
}

func (l *stepLog) snapshot() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

func (l *stepLog) reset() {
	l.mu.Lock()
	l.steps = nil
	l.mu.Unlock()
}
