package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cycled/internal/catalog"
	"cycled/internal/store"
	"cycled/internal/tier"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the model configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved model configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [role] [tier]",
	Short: "Enable a role at a tier (use tier \"off\" to disable the role)",
	Long: `Updates one row of the model configuration and saves it, refusing
changes that would not fit in memory.

Examples:
  cycled config set coder large
  cycled config set vision off`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset to the recommended default for this host",
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	manager := tier.NewManager(nil)
	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}

	fmt.Println(tier.DescribeConfiguration(selection))

	analysis, err := manager.AnalyzeConfiguration(selection)
	if err != nil {
		return err
	}
	fmt.Printf("Estimated RAM: %.1f GB of %.1f GB available\n",
		analysis.EstimatedRAMGB, manager.SystemRAMGB())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	role := catalog.Role(args[0])
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (valid: %v)", args[0], catalog.AllRoles)
	}

	manager := tier.NewManager(nil)
	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}

	if args[1] == "off" {
		current, ok := selection.TierOf(role)
		if !ok {
			current = catalog.TierSmall
		}
		selection = selection.WithSelection(catalog.ModelSelection{Role: role, Tier: current, Enabled: false})
	} else {
		t := catalog.Tier(args[1])
		if !t.Valid() {
			return fmt.Errorf("unknown tier %q (valid: small, medium, large, or off)", args[1])
		}
		selection = selection.WithSelection(catalog.ModelSelection{Role: role, Tier: t, Enabled: true})
	}

	analysis, err := manager.AnalyzeConfiguration(selection)
	if err != nil {
		return err
	}
	if !analysis.CanFit {
		return fmt.Errorf("refusing to save: %.1f GB needed but only %.1f GB available (%s)",
			analysis.EstimatedRAMGB, manager.SystemRAMGB(), analysis.Recommendation)
	}

	if err := saveConfiguration(selection); err != nil {
		return err
	}
	color.Green("Saved. Estimated RAM: %.1f GB", analysis.EstimatedRAMGB)
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	manager := tier.NewManager(nil)
	selection := manager.CreateDefaultConfiguration()

	if err := saveConfiguration(selection); err != nil {
		return err
	}
	color.Green("Reset to the %s-tier default.", manager.RecommendedTier())
	return nil
}

func saveConfiguration(selection catalog.CustomConfiguration) error {
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveConfiguration(selection)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent orchestration statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	snaps, err := s.RecentStats(10)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	color.New(color.Bold).Println("Recent runs:")
	for _, snap := range snaps {
		fmt.Printf("  %s  switches: %-3d avg switch: %-8s warm: %s\n",
			snap.RecordedAt.Format("2006-01-02 15:04:05"),
			snap.ModelSwitchCount, snap.AverageSwitchTime, snap.WarmAgent)
	}
	return nil
}
