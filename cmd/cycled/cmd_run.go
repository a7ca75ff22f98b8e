package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cycled/internal/catalog"
	"cycled/internal/events"
	"cycled/internal/orchestrator"
	"cycled/internal/policy"
	"cycled/internal/store"
	"cycled/internal/tier"
)

var runAgentsFlag []string

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Execute a task across the agent pool",
	Long: `Runs a task through the orchestration engine. Without --agents the
task is classified and the single best agent handles it (Auto mode);
with an ordered --agents list the agents run as a pipeline, each step
consuming the previous step's output.

Examples:
  cycled run "fix the failing parser test"
  cycled run --agents researcher,coder "add retry logic to the fetcher"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringSliceVar(&runAgentsFlag, "agents", nil,
		"ordered agent roles for pipeline mode (e.g. researcher,coder)")
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := tier.NewManager(nil)
	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}

	analysis, err := manager.AnalyzeConfiguration(selection)
	if err != nil {
		return err
	}
	if !analysis.CanFit {
		return fmt.Errorf("configuration does not fit in memory: %s", analysis.Recommendation)
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	bus := events.NewBus(cfg.Limits.EventBusBuffer)
	eventsCh, cancelSub := bus.Subscribe()
	defer cancelSub()
	go printEvents(eventsCh)

	orch, err := orchestrator.NewManager(selection, manager, client, policy.For(cfg.Preset), bus)
	if err != nil {
		return err
	}

	var roles []catalog.Role
	for _, name := range runAgentsFlag {
		roles = append(roles, catalog.Role(strings.TrimSpace(name)))
	}

	output, err := orch.PlanAndExecute(ctx, task, orchestrator.NewTaskContext(cfg.Workspace), roles)
	if err != nil {
		return err
	}

	fmt.Println()
	color.New(color.Bold).Println("Result:")
	fmt.Println(output)

	recordRunStats(orch)
	return nil
}

// printEvents renders engine events as they arrive.
func printEvents(ch <-chan events.Event) {
	dim := color.New(color.Faint)
	for ev := range ch {
		switch ev.Kind {
		case events.KindModelSwitch:
			color.Cyan("  [switch] %s -> %s", ev.Agent, ev.Message)
		case events.KindProgress:
			dim.Printf("  [%3.0f%%] %s\n", ev.Progress*100, ev.Message)
		case events.KindError:
			color.Red("  [error] %s: %s", ev.Agent, ev.Message)
		default:
			dim.Printf("  %s\n", ev.Message)
		}
	}
}

// recordRunStats persists the switch statistics; failures only log.
func recordRunStats(orch *orchestrator.Manager) {
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return
	}
	defer s.Close()

	stats := orch.Statistics()
	_ = s.RecordStats(store.StatsSnapshot{
		ModelSwitchCount:  stats.ModelSwitchCount,
		AverageSwitchTime: stats.AverageSwitchTime,
		WarmAgent:         string(stats.WarmAgent),
	})
}
