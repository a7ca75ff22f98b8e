package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cycled/internal/catalog"
	"cycled/internal/store"
	"cycled/internal/tier"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the model configuration against host memory",
	Long: `Checks whether the saved model configuration fits in system RAM,
prints the speed/quality tradeoff, and recommends tier changes.
With no saved configuration, the recommended default is analyzed.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	manager := tier.NewManager(nil)

	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}

	analysis, err := manager.AnalyzeConfiguration(selection)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("System RAM: %.1f GB (recommended tier: %s)\n\n", manager.SystemRAMGB(), manager.RecommendedTier())

	for _, desc := range analysis.ModelDescriptions {
		fmt.Println("  " + desc)
	}
	fmt.Println()

	fmt.Printf("Estimated RAM: %.1f GB  Disk: %.1f GB\n", analysis.EstimatedRAMGB, analysis.TotalDiskGB)
	fmt.Printf("Speed: %.1f/10  Quality: %.1f/10\n", analysis.SpeedRating, analysis.QualityRating)

	if analysis.CanFit {
		color.Green("Fits in memory.")
	} else {
		color.Red("Does not fit in memory.")
	}
	if analysis.Recommendation != "" {
		color.Yellow("Recommendation: %s", analysis.Recommendation)
	}

	settings, err := manager.GetMemorySettings(selection)
	if err == nil {
		fmt.Printf("\nRuntime settings: context window %d tokens, keep-alive %s\n",
			settings.ContextWindow, settings.KeepAlive)
	}
	return nil
}

// loadOrDefaultConfiguration prefers the persisted selection and falls
// back to the recommended default for this host.
func loadOrDefaultConfiguration(manager *tier.Manager) (catalog.CustomConfiguration, error) {
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return catalog.CustomConfiguration{}, err
	}
	defer s.Close()

	selection, err := s.LoadConfiguration()
	if errors.Is(err, store.ErrNotFound) {
		return manager.CreateDefaultConfiguration(), nil
	}
	if err != nil {
		return catalog.CustomConfiguration{}, err
	}
	return selection, nil
}
