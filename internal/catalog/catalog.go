// Package catalog provides the static model catalog shared across cycled packages.
// This package exists to break import cycles between tier, orchestrator, and store.
// Types in this package are foundational data structures with no complex dependencies.
package catalog

import (
	"fmt"
	"sort"
)

// Role identifies the specialist slot a model fills in the agent pool.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleCoder        Role = "coder"
	RoleResearcher   Role = "researcher"
	RoleVision       Role = "vision"
)

// AllRoles lists every role in catalog order.
var AllRoles = []Role{RoleOrchestrator, RoleCoder, RoleResearcher, RoleVision}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOrchestrator, RoleCoder, RoleResearcher, RoleVision:
		return true
	default:
		return false
	}
}

// Tier is a cost/quality band for a model variant within a role.
// Larger tiers trade memory footprint for capability.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// AllTiers lists tiers in ascending size order.
var AllTiers = []Tier{TierSmall, TierMedium, TierLarge}

// Valid reports whether the tier is one of the known bands.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank returns the ordinal of the tier (small=0, medium=1, large=2).
// Unknown tiers rank below small.
func (t Tier) Rank() int {
	switch t {
	case TierSmall:
		return 0
	case TierMedium:
		return 1
	case TierLarge:
		return 2
	default:
		return -1
	}
}

// ModelVariant describes one concrete model in the catalog. Immutable.
type ModelVariant struct {
	Name           string  // runtime model identifier, e.g. "qwen2.5-coder:7b"
	ParameterCount string  // human-readable parameter count, e.g. "7B"
	DiskSizeGB     float64 // on-disk size of the weights
	EstimatedRAMGB float64 // resident memory estimate when loaded
	Tier           Tier
}

// variants maps (role, tier) to the concrete model variant.
// RAM estimates are calibrated for a llama.cpp-style local runtime with
// default context buffers.
var variants = map[Role]map[Tier]ModelVariant{
	RoleOrchestrator: {
		TierSmall:  {Name: "qwen2.5:3b-instruct", ParameterCount: "3B", DiskSizeGB: 1.9, EstimatedRAMGB: 4.0, Tier: TierSmall},
		TierMedium: {Name: "qwen2.5:7b-instruct", ParameterCount: "7B", DiskSizeGB: 4.7, EstimatedRAMGB: 7.0, Tier: TierMedium},
		TierLarge:  {Name: "qwen2.5:14b-instruct", ParameterCount: "14B", DiskSizeGB: 9.0, EstimatedRAMGB: 12.0, Tier: TierLarge},
	},
	RoleCoder: {
		TierSmall:  {Name: "qwen2.5-coder:3b", ParameterCount: "3B", DiskSizeGB: 1.9, EstimatedRAMGB: 5.0, Tier: TierSmall},
		TierMedium: {Name: "qwen2.5-coder:7b", ParameterCount: "7B", DiskSizeGB: 4.7, EstimatedRAMGB: 7.0, Tier: TierMedium},
		TierLarge:  {Name: "qwen2.5-coder:14b", ParameterCount: "14B", DiskSizeGB: 9.0, EstimatedRAMGB: 12.0, Tier: TierLarge},
	},
	RoleResearcher: {
		TierSmall:  {Name: "llama3.2:3b", ParameterCount: "3B", DiskSizeGB: 2.0, EstimatedRAMGB: 4.0, Tier: TierSmall},
		TierMedium: {Name: "llama3.1:8b", ParameterCount: "8B", DiskSizeGB: 4.9, EstimatedRAMGB: 7.5, Tier: TierMedium},
		TierLarge:  {Name: "qwen2.5:14b", ParameterCount: "14B", DiskSizeGB: 9.0, EstimatedRAMGB: 12.0, Tier: TierLarge},
	},
	RoleVision: {
		TierSmall:  {Name: "moondream:1.8b", ParameterCount: "1.8B", DiskSizeGB: 1.7, EstimatedRAMGB: 3.0, Tier: TierSmall},
		TierMedium: {Name: "llava:7b", ParameterCount: "7B", DiskSizeGB: 4.7, EstimatedRAMGB: 7.0, Tier: TierMedium},
		TierLarge:  {Name: "llava:13b", ParameterCount: "13B", DiskSizeGB: 8.0, EstimatedRAMGB: 11.0, Tier: TierLarge},
	},
}

// Variant returns the model variant for a role at a tier.
func Variant(role Role, tier Tier) (ModelVariant, error) {
	byTier, ok := variants[role]
	if !ok {
		return ModelVariant{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	v, ok := byTier[tier]
	if !ok {
		return ModelVariant{}, fmt.Errorf("%w: %s/%s", ErrUnknownTier, role, tier)
	}
	return v, nil
}

// ModelOption pairs a tier with its variant for option listings.
type ModelOption struct {
	Tier    Tier
	Variant ModelVariant
}

// Options returns the available variants for a role, sorted ascending by size.
func Options(role Role) ([]ModelOption, error) {
	byTier, ok := variants[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	opts := make([]ModelOption, 0, len(byTier))
	for tier, v := range byTier {
		opts = append(opts, ModelOption{Tier: tier, Variant: v})
	}
	sort.Slice(opts, func(i, j int) bool {
		return opts[i].Tier.Rank() < opts[j].Tier.Rank()
	})
	return opts, nil
}
