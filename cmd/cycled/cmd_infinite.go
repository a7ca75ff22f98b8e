package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cycled/internal/agentexec"
	"cycled/internal/catalog"
	"cycled/internal/config"
	"cycled/internal/events"
	"cycled/internal/inference"
	"cycled/internal/orchestrator"
	"cycled/internal/policy"
	"cycled/internal/tier"
	"cycled/internal/tools"
)

var infiniteMaxLoops int

var infiniteCmd = &cobra.Command{
	Use:   "infinite [task]",
	Short: "Run a single agent autonomously until the task is done",
	Long: `Starts the autonomous reasoning loop: the agent thinks, calls tools
(file access, shell, codebase search, screenshots, delegation to
specialists), and keeps going until it completes the task, hits the
iteration budget, or asks for your input. Press Ctrl-C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfinite,
}

func init() {
	infiniteCmd.Flags().IntVar(&infiniteMaxLoops, "max-loops", 0,
		"iteration budget (default from config)")
}

func runInfinite(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := tier.NewManager(nil)
	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	bus := events.NewBus(cfg.Limits.EventBusBuffer)

	orch, err := orchestrator.NewManager(selection, manager, client, policy.For(cfg.Preset), bus)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	if err := tools.RegisterDelegates(registry, orch); err != nil {
		return err
	}

	// The orchestrator-role model does the reasoning; specialists are
	// reachable through the delegate tools.
	pool := orch.Pool()
	agent, ok := pool[catalog.RoleOrchestrator]
	if !ok {
		for _, a := range pool {
			agent = a
			break
		}
	}

	maxLoops := cfg.Limits.MaxLoops
	if infiniteMaxLoops > 0 {
		maxLoops = infiniteMaxLoops
	}

	executor := agentexec.NewExecutor(client, agent.Model.Name, registry, bus, maxLoops)
	if settings, err := manager.GetMemorySettings(selection); err == nil {
		executor.SetOptions(executorOptions(settings))
	}

	// Long autonomous runs pick up edits to the runtime section without a
	// restart.
	if local, ok := client.(*inference.LocalClient); ok {
		watcher, werr := config.NewWatcher(configPath, func(next config.Config) {
			local.Reconfigure(inference.LocalConfig{
				BaseURL: next.Runtime.BaseURL,
				Timeout: next.Runtime.Timeout.StdDuration(),
			})
		})
		if werr == nil {
			if werr = watcher.Start(); werr == nil {
				defer watcher.Stop()
			}
		}
		if werr != nil {
			color.Yellow("config watch disabled: %v", werr)
		}
	}

	color.New(color.Bold).Printf("Starting autonomous run with %s (%s), budget %d iterations\n\n",
		agent.Role, agent.Model.Name, maxLoops)

	if err := executor.Start(task, cfg.Workspace); err != nil {
		return err
	}

	watchExecutor(ctx, executor)
	printStepLog(executor.Steps())
	return nil
}

func executorOptions(settings tier.MemorySettings) inference.Options {
	return inference.Options{
		ContextWindow: settings.ContextWindow,
		KeepAlive:     settings.KeepAlive,
		Temperature:   0.3,
	}
}

// watchExecutor mirrors the step log to the terminal and relays user
// input when the agent asks for it.
func watchExecutor(ctx context.Context, executor *agentexec.Executor) {
	reader := bufio.NewReader(os.Stdin)
	printed := 0

	for {
		steps := executor.Steps()
		for _, s := range steps[printed:] {
			printStep(s)
		}
		printed = len(steps)

		if !executor.IsRunning() {
			return
		}
		if ctx.Err() != nil {
			executor.Stop()
			continue
		}

		if executor.WaitingForUser() {
			color.Yellow("agent is waiting for input > ")
			line, err := reader.ReadString('\n')
			if err != nil {
				executor.Stop()
				continue
			}
			if err := executor.ProvideUserInput(strings.TrimSpace(line)); err != nil {
				// The run may have been stopped while we were reading.
				continue
			}
		}

		time.Sleep(100 * time.Millisecond)
	}
}

func printStepLog(steps []agentexec.Step) {
	fmt.Println()
	color.New(color.Bold).Printf("Run finished: %d steps\n", len(steps))
}

func printStep(s agentexec.Step) {
	switch s.Kind {
	case agentexec.StepThinking:
		color.New(color.Faint).Printf("  [think] %s\n", s.Content)
	case agentexec.StepTool:
		color.Cyan("  [tool %s]", s.ToolName)
		fmt.Println(indent(s.Content, "    "))
	case agentexec.StepUserInput:
		color.Yellow("  [question] %s", s.Content)
	case agentexec.StepError:
		color.Red("  [error] %s", s.Content)
	case agentexec.StepComplete:
		color.Green("  [done] %s", s.Content)
	default:
		fmt.Printf("  %s\n", s.Content)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
