// Package orchestrator owns the agent pool and runs tasks across it.
// It chooses between Pipeline and Auto execution, tracks which model is
// warm in the inference runtime, and publishes progress on the event bus
// instead of being polled.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cycled/internal/catalog"
	"cycled/internal/events"
	"cycled/internal/inference"
	"cycled/internal/logging"
	"cycled/internal/policy"
	"cycled/internal/tier"
)

// =============================================================================
// ROLE DISPATCH TABLE
// =============================================================================

// roleHandler carries the per-role invocation profile. New roles are added
// by extending this table, not by branching in the execution path.
type roleHandler struct {
	systemPrompt string
	temperature  float64
}

var roleHandlers = map[catalog.Role]roleHandler{
	catalog.RoleOrchestrator: {
		systemPrompt: "You are the orchestrator. Plan, coordinate, and synthesize the work of specialist agents into a coherent answer.",
		temperature:  0.4,
	},
	catalog.RoleCoder: {
		systemPrompt: "You are an expert software engineer. Produce correct, idiomatic code and explain only what is necessary.",
		temperature:  0.2,
	},
	catalog.RoleResearcher: {
		systemPrompt: "You are a research specialist. Gather, compare, and cite relevant information, then answer precisely.",
		temperature:  0.6,
	},
	catalog.RoleVision: {
		systemPrompt: "You are a vision specialist. Describe and analyze images and visual artifacts in detail.",
		temperature:  0.3,
	},
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager coordinates the agent pool for task execution. At most one run
// is active at a time; concurrent PlanAndExecute calls are rejected with
// ErrRunActive.
type Manager struct {
	pool   map[catalog.Role]catalog.AgentDefinition
	order  []catalog.Role
	config catalog.CustomConfiguration

	tiers      *tier.Manager
	client     inference.Client
	pol        policy.Policy
	bus        *events.Bus
	classifier Classifier

	warm    *WarmSlot
	running atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// NewManager builds the immutable agent pool from the configuration and
// wires the manager's collaborators. The bus may be nil when no consumer
// cares about progress events.
func NewManager(cfg catalog.CustomConfiguration, tiers *tier.Manager, client inference.Client, pol policy.Policy, bus *events.Bus) (*Manager, error) {
	pool, err := catalog.BuildPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("building agent pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoAgents
	}

	var order []catalog.Role
	for _, sel := range cfg.EnabledSelections() {
		order = append(order, sel.Role)
	}

	return &Manager{
		pool:       pool,
		order:      order,
		config:     cfg,
		tiers:      tiers,
		client:     client,
		pol:        pol,
		bus:        bus,
		classifier: KeywordClassifier{},
		warm:       NewWarmSlot(),
		progress:   Progress{State: StateIdle},
	}, nil
}

// SetClassifier swaps the task classifier. Must be called before any run.
func (m *Manager) SetClassifier(c Classifier) {
	if c != nil {
		m.classifier = c
	}
}

// Pool returns the agent definitions keyed by role.
func (m *Manager) Pool() map[catalog.Role]catalog.AgentDefinition {
	out := make(map[catalog.Role]catalog.AgentDefinition, len(m.pool))
	for k, v := range m.pool {
		out[k] = v
	}
	return out
}

// Progress returns a snapshot of the current run state.
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.progress
	snap.Results = append([]TaskResult(nil), m.progress.Results...)
	return snap
}

// Statistics reports the running aggregate across all runs.
func (m *Manager) Statistics() OrchestrationStatistics {
	warmRole, _ := m.warm.Role()
	return OrchestrationStatistics{
		AvailableRAMGB:    m.tiers.SystemRAMGB(),
		CanRunParallel:    m.canRunParallel(),
		ModelSwitchCount:  m.warm.SwitchCount(),
		AverageSwitchTime: m.warm.AverageSwitchTime(),
		WarmAgent:         warmRole,
	}
}

// canRunParallel is true when the memory budget can keep the two largest
// enabled models resident at once.
func (m *Manager) canRunParallel() bool {
	enabled := m.config.EnabledSelections()
	if len(enabled) < 2 {
		return false
	}

	// Rank enabled selections by their variant's RAM estimate and keep
	// the two heaviest.
	heaviest := make([]catalog.ModelSelection, len(enabled))
	copy(heaviest, enabled)
	for i := 0; i < len(heaviest); i++ {
		for j := i + 1; j < len(heaviest); j++ {
			if m.variantRAM(heaviest[j]) > m.variantRAM(heaviest[i]) {
				heaviest[i], heaviest[j] = heaviest[j], heaviest[i]
			}
		}
	}

	pair := catalog.CustomConfiguration{Selections: heaviest[:2]}
	analysis, err := m.tiers.AnalyzeConfiguration(pair)
	if err != nil {
		return false
	}
	return analysis.CanFit
}

func (m *Manager) variantRAM(sel catalog.ModelSelection) float64 {
	v, err := catalog.Variant(sel.Role, sel.Tier)
	if err != nil {
		return 0
	}
	return v.EstimatedRAMGB
}

// =============================================================================
// EXECUTION
// =============================================================================

// PlanAndExecute runs a task. With an explicit agent list it executes the
// Pipeline strategy, chaining each agent's output into the next step's
// input; with no list it classifies the task and runs the single best
// agent (Auto). Only one run may be active per manager.
//
// A model invocation failure aborts remaining steps; results already
// produced stay visible through Progress. Cancellation is cooperative and
// checked between steps only.
func (m *Manager) PlanAndExecute(ctx context.Context, task string, tctx *TaskContext, selected []catalog.Role) (string, error) {
	if !m.running.CompareAndSwap(false, true) {
		return "", ErrRunActive
	}
	defer m.running.Store(false)

	runID := uuid.NewString()
	log := logging.L(logging.CategoryOrchestrator)

	if tctx == nil {
		tctx = NewTaskContext("")
	}
	run := tctx.Clone()

	m.resetProgress()

	agents, pipeline, err := m.selectAgents(task, selected)
	if err != nil {
		m.setState(runID, StateFailed, err.Error())
		return "", err
	}

	if m.pol.RequiresPlanning {
		m.setState(runID, StatePlanning, "planning task breakdown")
		if err := m.runPlanning(ctx, runID, task, run); err != nil {
			log.Warnw("planning step failed, continuing without plan", "run", runID, "error", err)
		}
	}

	var output string
	if pipeline {
		log.Infow("executing pipeline", "run", runID, "agents", len(agents), "task_len", len(task))
		output, err = m.runPipeline(ctx, runID, task, run, agents)
	} else {
		log.Infow("executing auto", "run", runID, "agent", agents[0], "task_len", len(task))
		output, err = m.runAuto(ctx, runID, task, run, agents[0])
	}
	if err != nil {
		m.setState(runID, StateFailed, err.Error())
		return "", err
	}

	if m.pol.VerificationLevel != policy.VerifyNone {
		m.verifyRun(ctx, runID, task, output)
	}

	m.setState(runID, StateCompleted, "task completed")
	return output, nil
}

// selectAgents resolves the roles a run will use. An explicit list means
// Pipeline; otherwise the classifier picks a single agent for Auto, with
// the orchestrator as the fallback when the inferred role is not enabled.
func (m *Manager) selectAgents(task string, selected []catalog.Role) ([]catalog.Role, bool, error) {
	if len(selected) > 0 {
		for _, role := range selected {
			if _, ok := m.pool[role]; !ok {
				return nil, false, fmt.Errorf("%w: %s", ErrUnknownAgent, role)
			}
		}
		return selected, true, nil
	}

	capability := m.classifier.Classify(task)
	role := catalog.RoleFor(capability)
	if _, ok := m.pool[role]; !ok {
		role = catalog.RoleOrchestrator
		if _, ok := m.pool[role]; !ok {
			// No orchestrator either; take the first enabled agent.
			if len(m.order) == 0 {
				return nil, false, ErrNoAgents
			}
			role = m.order[0]
		}
	}
	return []catalog.Role{role}, false, nil
}

func (m *Manager) runPipeline(ctx context.Context, runID, task string, run *TaskContext, agents []catalog.Role) (string, error) {
	var prior, priorKey string
	for i, role := range agents {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Seeded files, the plan, and earlier step outputs ride along as
		// context; the latest output chains separately so it is not
		// rendered twice.
		input := task
		if section := run.RenderFiles(priorKey); section != "" {
			input += "\n\nContext files:\n" + section
		}
		if prior != "" {
			input += "\n\nPrevious result:\n" + prior
		}

		result, err := m.invokeAgent(ctx, runID, role, input)
		if err != nil {
			return "", &TaskExecutionError{Agent: role, Step: i, Err: err}
		}

		m.appendResult(*result)
		prior = result.Output
		priorKey = fmt.Sprintf("step_%d_%s.txt", i, role)
		run.Files[priorKey] = result.Output

		m.publishProgress(runID, float64(i+1)/float64(len(agents)),
			fmt.Sprintf("step %d/%d (%s) done", i+1, len(agents), role))
	}
	return prior, nil
}

func (m *Manager) runAuto(ctx context.Context, runID, task string, run *TaskContext, role catalog.Role) (string, error) {
	input := task
	if section := run.RenderFiles(); section != "" {
		input += "\n\nContext files:\n" + section
	}
	result, err := m.invokeAgent(ctx, runID, role, input)
	if err != nil {
		return "", &TaskExecutionError{Agent: role, Step: 0, Err: err}
	}
	m.appendResult(*result)
	m.publishProgress(runID, 1, fmt.Sprintf("%s done", role))
	return result.Output, nil
}

// runPlanning asks the orchestrator model for a short task breakdown, kept
// only as a progress annotation. Planning failure never aborts the run.
func (m *Manager) runPlanning(ctx context.Context, runID, task string, run *TaskContext) error {
	if _, ok := m.pool[catalog.RoleOrchestrator]; !ok {
		return nil
	}
	result, err := m.invokeAgent(ctx, runID, catalog.RoleOrchestrator,
		"Break the following task into a short ordered plan of steps. Task:\n"+task)
	if err != nil {
		return err
	}
	run.Files["plan.txt"] = result.Output
	m.publish(events.Event{Kind: events.KindStepCompleted, RunID: runID,
		Agent: "planner", Message: result.Output, Timestamp: time.Now()})
	return nil
}

// verifyRun reviews a finished run. With enough memory headroom to keep
// two models resident, each pipeline step is reviewed concurrently;
// otherwise only the final output is. Reviews are advisory: published as
// events, never changing or aborting the result.
func (m *Manager) verifyRun(ctx context.Context, runID, task, output string) {
	results := m.Progress().Results
	if !m.canRunParallel() || len(results) < 2 {
		m.verify(ctx, runID, task, output)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, r := range results {
		g.Go(func() error {
			m.verify(gctx, runID, task, r.Output)
			return nil
		})
	}
	_ = g.Wait()
}

// verify runs one review invocation over an output.
func (m *Manager) verify(ctx context.Context, runID, task, output string) {
	if _, ok := m.pool[catalog.RoleOrchestrator]; !ok {
		return
	}

	instruction := "Review the answer below for correctness and completeness."
	if m.pol.VerificationLevel == policy.VerifyExpertJudge {
		instruction = "Act as an expert judge. Rigorously assess the answer below for correctness, completeness, and quality."
	}
	prompt := instruction + " Task:\n" + task + "\n\nAnswer:\n" + output

	result, err := m.invokeAgent(ctx, runID, catalog.RoleOrchestrator, prompt)
	if err != nil {
		logging.L(logging.CategoryOrchestrator).Warnw("verification failed", "run", runID, "error", err)
		return
	}
	m.publish(events.Event{Kind: events.KindStepCompleted, RunID: runID,
		Agent: "verifier", Message: result.Output, Timestamp: time.Now()})
}

// invokeAgent invokes one role's model with warm-slot bookkeeping and the
// policy's retry budget. Retries re-invoke the same agent with the same
// input.
func (m *Manager) invokeAgent(ctx context.Context, runID string, role catalog.Role, input string) (*TaskResult, error) {
	agent, ok := m.pool[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, role)
	}
	handler := roleHandlers[role]

	warmRole, warmSet := m.warm.Role()
	switching := !warmSet || warmRole != role
	if switching {
		m.setState(runID, StateSwitchingModel, fmt.Sprintf("loading %s for %s", agent.Model.Name, role))
		m.publish(events.Event{Kind: events.KindModelSwitch, RunID: runID,
			Agent: string(role), Message: agent.Model.Name, Timestamp: time.Now()})
	}
	m.setState(runID, StateExecuting, fmt.Sprintf("invoking %s", role))

	settings, err := m.tiers.GetMemorySettings(m.config)
	if err != nil {
		settings = tier.MemorySettings{}
	}
	opts := inference.Options{
		ContextWindow: settings.ContextWindow,
		KeepAlive:     settings.KeepAlive,
		Temperature:   handler.temperature,
	}

	var resp *inference.Response
	start := time.Now()
	for attempt := 0; ; attempt++ {
		resp, err = m.client.Invoke(ctx, agent.Model.Name, handler.systemPrompt, input, opts)
		if err == nil {
			break
		}
		if attempt >= m.pol.RetryLimit || ctx.Err() != nil {
			m.publish(events.Event{Kind: events.KindError, RunID: runID,
				Agent: string(role), Message: err.Error(), Timestamp: time.Now()})
			return nil, err
		}
		logging.L(logging.CategoryOrchestrator).Warnw("invocation failed, retrying",
			"run", runID, "role", role, "attempt", attempt+1, "error", err)
	}

	var switchTime time.Duration
	if switching {
		switchTime = resp.LoadDuration
	}
	m.warm.Touch(role, switchTime)

	return &TaskResult{
		Output:          resp.Text,
		AgentID:         agent.ID,
		ExecutionTime:   time.Since(start),
		ModelSwitchTime: switchTime,
		TokensUsed:      resp.TokensUsed,
	}, nil
}

// Delegate implements nested invocation for the delegate_to_* tools: the
// named role is invoked directly with the sub-task, with the same
// warm-slot accounting as a pipeline step.
func (m *Manager) Delegate(ctx context.Context, role string, task string) (string, error) {
	r := catalog.Role(role)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %s", catalog.ErrUnknownRole, role)
	}
	result, err := m.invokeAgent(ctx, "delegate", r, task)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// =============================================================================
// PROGRESS BOOKKEEPING
// =============================================================================

func (m *Manager) resetProgress() {
	m.mu.Lock()
	m.progress = Progress{State: StateIdle}
	m.mu.Unlock()
}

func (m *Manager) setState(runID string, state RunState, msg string) {
	m.mu.Lock()
	m.progress.State = state
	m.progress.StatusMessage = msg
	m.mu.Unlock()

	m.publish(events.Event{Kind: events.KindStateChange, RunID: runID,
		Message: string(state) + ": " + msg, Timestamp: time.Now()})
}

func (m *Manager) appendResult(r TaskResult) {
	m.mu.Lock()
	m.progress.Results = append(m.progress.Results, r)
	m.mu.Unlock()
}

func (m *Manager) publishProgress(runID string, fraction float64, msg string) {
	m.mu.Lock()
	m.progress.Fraction = fraction
	m.progress.StatusMessage = msg
	m.mu.Unlock()

	m.publish(events.Event{Kind: events.KindProgress, RunID: runID,
		Message: msg, Progress: fraction, Timestamp: time.Now()})
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}
