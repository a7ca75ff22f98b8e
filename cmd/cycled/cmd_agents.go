package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cycled/internal/catalog"
	"cycled/internal/tier"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agent pool and the model options per role",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	manager := tier.NewManager(nil)

	selection, err := loadOrDefaultConfiguration(manager)
	if err != nil {
		return err
	}
	pool, err := catalog.BuildPool(selection)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println("Agent pool:")
	roles := make([]string, 0, len(pool))
	for role := range pool {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, r := range roles {
		agent := pool[catalog.Role(r)]
		fmt.Printf("  %-13s %s (%s, %.1f GB RAM)  capabilities: %v\n",
			agent.Role, agent.Model.Name, agent.Model.ParameterCount,
			agent.Model.EstimatedRAMGB, agent.Capabilities)
	}

	bold.Println("\nModel options:")
	for _, role := range catalog.AllRoles {
		options, err := manager.ModelOptions(role)
		if err != nil {
			return err
		}
		fmt.Printf("  %s:\n", role)
		for _, opt := range options {
			marker := " "
			if enabledAt(selection, role, opt.Tier) {
				marker = color.GreenString("*")
			}
			fmt.Printf("   %s %-7s %s (%.1f GB RAM, %.1f GB disk)\n",
				marker, opt.Tier, opt.Variant.Name,
				opt.Variant.EstimatedRAMGB, opt.Variant.DiskSizeGB)
		}
	}
	return nil
}

func enabledAt(cfg catalog.CustomConfiguration, role catalog.Role, t catalog.Tier) bool {
	for _, sel := range cfg.Selections {
		if sel.Role == role && sel.Tier == t && sel.Enabled {
			return true
		}
	}
	return false
}
