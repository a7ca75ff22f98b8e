package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cycled/internal/catalog"
	"cycled/internal/events"
	"cycled/internal/inference"
	"cycled/internal/policy"
	"cycled/internal/tier"
)

func testConfig() catalog.CustomConfiguration {
	return catalog.CustomConfiguration{Selections: []catalog.ModelSelection{
		{Role: catalog.RoleOrchestrator, Tier: catalog.TierSmall, Enabled: true},
		{Role: catalog.RoleCoder, Tier: catalog.TierSmall, Enabled: true},
		{Role: catalog.RoleResearcher, Tier: catalog.TierSmall, Enabled: true},
	}}
}

func testManager(t *testing.T, client inference.Client, pol policy.Policy) *Manager {
	t.Helper()
	m, err := NewManager(testConfig(), tier.NewManagerWithRAM(16), client, pol, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerEmptyPool(t *testing.T) {
	cfg := catalog.CustomConfiguration{Selections: []catalog.ModelSelection{
		{Role: catalog.RoleCoder, Tier: catalog.TierSmall, Enabled: false},
	}}
	_, err := NewManager(cfg, tier.NewManagerWithRAM(16), inference.NewScriptedClient(nil, nil), policy.For(policy.PresetFast), nil)
	if !errors.Is(err, ErrNoAgents) {
		t.Fatalf("expected ErrNoAgents, got %v", err)
	}
}

func TestPipelineProducesResultsInOrder(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).
		Script("research findings").
		Script("final code")
	m := testManager(t, client, policy.For(policy.PresetFast))

	out, err := m.PlanAndExecute(context.Background(), "build X", nil,
		[]catalog.Role{catalog.RoleResearcher, catalog.RoleCoder})
	if err != nil {
		t.Fatalf("PlanAndExecute failed: %v", err)
	}
	if out != "final code" {
		t.Errorf("output = %q, want last step's output", out)
	}

	results := m.Progress().Results
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].AgentID != "researcher" || results[1].AgentID != "coder" {
		t.Errorf("result order = [%s, %s], want [researcher, coder]",
			results[0].AgentID, results[1].AgentID)
	}

	calls := client.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d invocations, want 2", len(calls))
	}
	if strings.Contains(calls[0].UserPrompt, "Previous result:") {
		t.Error("first step must have no prior context")
	}
	if !strings.Contains(calls[1].UserPrompt, "Previous result:") ||
		!strings.Contains(calls[1].UserPrompt, "research findings") {
		t.Errorf("second step input %q should chain the first output", calls[1].UserPrompt)
	}
}

func TestPipelineCarriesContextFiles(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).
		Script("notes gathered").
		Script("patch written").
		Script("docs updated")
	m := testManager(t, client, policy.For(policy.PresetFast))

	tctx := NewTaskContext(t.TempDir())
	tctx.Files["requirements.txt"] = "must support ipv6"

	_, err := m.PlanAndExecute(context.Background(), "build X", tctx,
		[]catalog.Role{catalog.RoleResearcher, catalog.RoleCoder, catalog.RoleCoder})
	if err != nil {
		t.Fatalf("PlanAndExecute failed: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d invocations, want 3", len(calls))
	}
	for i, call := range calls {
		if !strings.Contains(call.UserPrompt, "must support ipv6") {
			t.Errorf("step %d prompt is missing the seeded file", i)
		}
	}
	// The first step's output reaches the third step as a context file,
	// not only through the chained previous result.
	if !strings.Contains(calls[2].UserPrompt, "notes gathered") {
		t.Error("third step should see the first step's output")
	}
	if n := strings.Count(calls[2].UserPrompt, "patch written"); n != 1 {
		t.Errorf("latest output appears %d times in the third step's input, want once", n)
	}
	if len(tctx.Files) != 1 {
		t.Errorf("caller's context was mutated: %v", tctx.Files)
	}
}

func TestSwitchCountPerRoleChange(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).Script("ok")
	m := testManager(t, client, policy.For(policy.PresetFast))

	_, err := m.PlanAndExecute(context.Background(), "task", nil, []catalog.Role{
		catalog.RoleCoder, catalog.RoleCoder, catalog.RoleResearcher, catalog.RoleCoder,
	})
	if err != nil {
		t.Fatalf("PlanAndExecute failed: %v", err)
	}

	stats := m.Statistics()
	// coder (miss), coder (hit), researcher (miss), coder (miss)
	if stats.ModelSwitchCount != 3 {
		t.Errorf("ModelSwitchCount = %d, want 3", stats.ModelSwitchCount)
	}
	if stats.WarmAgent != catalog.RoleCoder {
		t.Errorf("WarmAgent = %q, want coder", stats.WarmAgent)
	}
}

func TestAutoClassifiesAndRunsOneAgent(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).Script("patched")
	m := testManager(t, client, policy.For(policy.PresetFast))

	out, err := m.PlanAndExecute(context.Background(), "fix the bug causing the crash", nil, nil)
	if err != nil {
		t.Fatalf("PlanAndExecute failed: %v", err)
	}
	if out != "patched" {
		t.Errorf("output = %q", out)
	}

	results := m.Progress().Results
	if len(results) != 1 {
		t.Fatalf("auto mode produced %d results, want exactly 1", len(results))
	}
	if results[0].AgentID != "coder" {
		t.Errorf("debugging task routed to %q, want coder", results[0].AgentID)
	}
}

func TestAutoAmbiguousFallsBackToOrchestrator(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).Script("handled")
	m := testManager(t, client, policy.For(policy.PresetFast))

	if _, err := m.PlanAndExecute(context.Background(), "do the thing", nil, nil); err != nil {
		t.Fatalf("PlanAndExecute failed: %v", err)
	}
	if got := m.Progress().Results[0].AgentID; got != "orchestrator" {
		t.Errorf("ambiguous task routed to %q, want orchestrator", got)
	}
}

func TestPipelineAbortsOnInvocationError(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).
		Script("step one out").
		ScriptError(inference.ErrModelUnavailable)
	m := testManager(t, client, policy.For(policy.PresetFast))

	_, err := m.PlanAndExecute(context.Background(), "task", nil,
		[]catalog.Role{catalog.RoleResearcher, catalog.RoleCoder, catalog.RoleOrchestrator})
	if err == nil {
		t.Fatal("expected failure")
	}

	var tee *TaskExecutionError
	if !errors.As(err, &tee) {
		t.Fatalf("expected TaskExecutionError, got %T", err)
	}
	if tee.Step != 1 || tee.Agent != catalog.RoleCoder {
		t.Errorf("failure at step %d agent %s, want step 1 coder", tee.Step, tee.Agent)
	}
	if !errors.Is(err, inference.ErrModelUnavailable) {
		t.Error("cause should unwrap to ErrModelUnavailable")
	}

	// The step that succeeded stays inspectable.
	prog := m.Progress()
	if prog.State != StateFailed {
		t.Errorf("state = %q, want failed", prog.State)
	}
	if len(prog.Results) != 1 || prog.Results[0].Output != "step one out" {
		t.Errorf("partial results lost: %+v", prog.Results)
	}
}

func TestRetryPerPolicy(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).
		ScriptError(inference.ErrNetwork).
		Script("recovered")
	// balanced allows one retry
	m := testManager(t, client, policy.Policy{Preset: policy.PresetBalanced, RetryLimit: 1})

	out, err := m.PlanAndExecute(context.Background(), "task", nil, []catalog.Role{catalog.RoleCoder})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if out != "recovered" {
		t.Errorf("output = %q", out)
	}
	if n := len(client.Calls()); n != 2 {
		t.Errorf("got %d invocations, want 2 (initial + retry)", n)
	}
}

func TestConcurrentRunsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := inference.NewScriptedClient(nil, nil).Script("ok")
	client.Hook = func(inference.ScriptedCall) {
		close(started)
		<-release
	}
	m := testManager(t, client, policy.For(policy.PresetFast))

	done := make(chan error, 1)
	go func() {
		_, err := m.PlanAndExecute(context.Background(), "long task", nil, []catalog.Role{catalog.RoleCoder})
		done <- err
	}()

	<-started
	if _, err := m.PlanAndExecute(context.Background(), "second task", nil, nil); !errors.Is(err, ErrRunActive) {
		t.Errorf("expected ErrRunActive, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first run failed: %v", err)
	}
}

func TestCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := inference.NewScriptedClient(nil, nil).Script("ok")
	client.Hook = func(inference.ScriptedCall) { cancel() }
	m := testManager(t, client, policy.For(policy.PresetFast))

	_, err := m.PlanAndExecute(ctx, "task", nil,
		[]catalog.Role{catalog.RoleCoder, catalog.RoleResearcher})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The in-flight step finished; cancellation was observed at the
	// step boundary.
	if n := len(client.Calls()); n != 1 {
		t.Errorf("got %d invocations after cancel, want 1", n)
	}
}

func TestEventsPublished(t *testing.T) {
	bus := events.NewBus(64)
	ch, cancelSub := bus.Subscribe()
	defer cancelSub()

	client := inference.NewScriptedClient(nil, nil).Script("done")
	m, err := NewManager(testConfig(), tier.NewManagerWithRAM(16), client, policy.For(policy.PresetFast), bus)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.PlanAndExecute(context.Background(), "task", nil, []catalog.Role{catalog.RoleCoder}); err != nil {
		t.Fatal(err)
	}

	seen := map[events.Kind]bool{}
	deadline := time.After(time.Second)
	for !seen[events.KindModelSwitch] || !seen[events.KindProgress] || !seen[events.KindStateChange] {
		select {
		case ev := <-ch:
			seen[ev.Kind] = true
		case <-deadline:
			t.Fatalf("missing event kinds, saw %v", seen)
		}
	}
}

func TestUnknownExplicitAgent(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil)
	cfg := catalog.CustomConfiguration{Selections: []catalog.ModelSelection{
		{Role: catalog.RoleCoder, Tier: catalog.TierSmall, Enabled: true},
	}}
	m, err := NewManager(cfg, tier.NewManagerWithRAM(16), client, policy.For(policy.PresetFast), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.PlanAndExecute(context.Background(), "task", nil, []catalog.Role{catalog.RoleVision})
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if n := len(client.Calls()); n != 0 {
		t.Errorf("no invocation should happen, got %d", n)
	}
}

func TestDelegateInvokesRole(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).Script("delegated answer")
	m := testManager(t, client, policy.For(policy.PresetFast))

	out, err := m.Delegate(context.Background(), "researcher", "look this up")
	if err != nil {
		t.Fatalf("Delegate failed: %v", err)
	}
	if out != "delegated answer" {
		t.Errorf("output = %q", out)
	}
	if got := client.Calls()[0].UserPrompt; got != "look this up" {
		t.Errorf("delegated prompt = %q", got)
	}

	if _, err := m.Delegate(context.Background(), "plumber", "x"); err == nil {
		t.Error("unknown role should fail")
	}
}

func TestStatisticsParallelCapability(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil)

	small, err := NewManager(testConfig(), tier.NewManagerWithRAM(8), client, policy.For(policy.PresetFast), nil)
	if err != nil {
		t.Fatal(err)
	}
	if small.Statistics().CanRunParallel {
		t.Error("8GB host should not run two models in parallel")
	}

	big, err := NewManager(testConfig(), tier.NewManagerWithRAM(64), client, policy.For(policy.PresetFast), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !big.Statistics().CanRunParallel {
		t.Error("64GB host should keep two small models resident")
	}
}

func TestPlanningPreStepRuns(t *testing.T) {
	client := inference.NewScriptedClient(nil, nil).
		Script("1. research 2. code").
		Script("answer").
		Script("review: fine")
	m := testManager(t, client, policy.For(policy.PresetThorough))

	out, err := m.PlanAndExecute(context.Background(), "task", nil, []catalog.Role{catalog.RoleCoder})
	if err != nil {
		t.Fatal(err)
	}
	if out != "answer" {
		t.Errorf("output = %q", out)
	}

	calls := client.Calls()
	// planning + pipeline step + expert-judge verification
	if len(calls) != 3 {
		t.Fatalf("got %d invocations, want 3", len(calls))
	}
	if !strings.Contains(calls[0].UserPrompt, "plan") {
		t.Errorf("first call should be the planning prompt, got %q", calls[0].UserPrompt)
	}
}
