// cycled is the command-line front end for the multi-model orchestration
// engine: analyze model configurations against host memory, run tasks
// across specialist agents, and drive the autonomous infinite mode.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cycled/internal/config"
	"cycled/internal/inference"
	"cycled/internal/logging"
)

var (
	verbose    bool
	configPath string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cycled",
	Short: "cycled - resource-aware multi-model agent orchestration",
	Long: `cycled coordinates specialized local AI models to complete a task
under a hard memory budget. It decides which model tiers fit in RAM,
sequences specialist agents over a task, tracks warm-model switch cost,
and can run a single agent autonomously until the task is done.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			configPath = filepath.Join(wd, config.DefaultFileName)
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if verbose {
			cfg.Logging.Verbose = true
		}
		return logging.Init(cfg.Logging.Verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// newClient builds the inference client the configuration asks for.
func newClient(ctx context.Context) (inference.Client, error) {
	switch cfg.Runtime.Provider {
	case "gemini":
		return inference.NewGeminiClient(ctx, cfg.Runtime.APIKey, "")
	default:
		return inference.NewLocalClient(inference.LocalConfig{
			BaseURL: cfg.Runtime.BaseURL,
			Timeout: cfg.Runtime.Timeout.StdDuration(),
		}), nil
	}
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: .cycled/config.yaml)")

	rootCmd.AddCommand(analyzeCmd, agentsCmd, runCmd, infiniteCmd, configCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
