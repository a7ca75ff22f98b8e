package catalog

// TaskCapability tags the kind of work an agent is suited for.
type TaskCapability string

const (
	CapCodeGeneration TaskCapability = "code_generation"
	CapCodeReview     TaskCapability = "code_review"
	CapDebugging      TaskCapability = "debugging"
	CapResearch       TaskCapability = "research"
	CapDocumentation  TaskCapability = "documentation"
	CapImageAnalysis  TaskCapability = "image_analysis"
	CapPlanning       TaskCapability = "planning"
	CapSynthesis      TaskCapability = "synthesis"
)

// AllCapabilities lists every capability tag.
var AllCapabilities = []TaskCapability{
	CapCodeGeneration, CapCodeReview, CapDebugging, CapResearch,
	CapDocumentation, CapImageAnalysis, CapPlanning, CapSynthesis,
}

// AgentDefinition binds a role to its model variant and capability set.
// Definitions are created once at startup and never mutated; the whole
// set forms the agent pool.
type AgentDefinition struct {
	ID           string
	Role         Role
	Model        ModelVariant
	Capabilities []TaskCapability
}

// HasCapability reports whether the agent carries the given tag.
func (a AgentDefinition) HasCapability(cap TaskCapability) bool {
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// roleCapabilities is the fixed capability set per role.
var roleCapabilities = map[Role][]TaskCapability{
	RoleOrchestrator: {CapPlanning, CapSynthesis},
	RoleCoder:        {CapCodeGeneration, CapCodeReview, CapDebugging},
	RoleResearcher:   {CapResearch, CapDocumentation},
	RoleVision:       {CapImageAnalysis},
}

// CapabilitiesFor returns the capability set for a role.
func CapabilitiesFor(role Role) []TaskCapability {
	caps := roleCapabilities[role]
	out := make([]TaskCapability, len(caps))
	copy(out, caps)
	return out
}

// RoleFor maps a capability back to the role that serves it.
// Planning and synthesis land on the orchestrator.
func RoleFor(cap TaskCapability) Role {
	switch cap {
	case CapCodeGeneration, CapCodeReview, CapDebugging:
		return RoleCoder
	case CapResearch, CapDocumentation:
		return RoleResearcher
	case CapImageAnalysis:
		return RoleVision
	default:
		return RoleOrchestrator
	}
}

// BuildPool constructs the immutable agent pool from a configuration.
// Disabled selections produce no agent. Agent IDs equal the role name so
// results stay stable across runs.
func BuildPool(cfg CustomConfiguration) (map[Role]AgentDefinition, error) {
	pool := make(map[Role]AgentDefinition, len(cfg.Selections))
	for _, sel := range cfg.Selections {
		if !sel.Enabled {
			continue
		}
		v, err := Variant(sel.Role, sel.Tier)
		if err != nil {
			return nil, err
		}
		pool[sel.Role] = AgentDefinition{
			ID:           string(sel.Role),
			Role:         sel.Role,
			Model:        v,
			Capabilities: CapabilitiesFor(sel.Role),
		}
	}
	return pool, nil
}
