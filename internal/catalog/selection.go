package catalog

// ModelSelection is one user-editable row of a configuration: which tier a
// role runs at and whether the role participates at all.
type ModelSelection struct {
	Role    Role `json:"role" yaml:"role"`
	Tier    Tier `json:"tier" yaml:"tier"`
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// CustomConfiguration is an ordered list of model selections. Selection
// order is execution order in pipeline mode. Mutations happen only through
// explicit update calls; analysis never modifies a configuration.
type CustomConfiguration struct {
	Selections []ModelSelection `json:"selections" yaml:"selections"`
}

// EnabledSelections returns the enabled rows in selection order.
func (c CustomConfiguration) EnabledSelections() []ModelSelection {
	out := make([]ModelSelection, 0, len(c.Selections))
	for _, sel := range c.Selections {
		if sel.Enabled {
			out = append(out, sel)
		}
	}
	return out
}

// TierOf returns the configured tier for a role and whether the role is enabled.
func (c CustomConfiguration) TierOf(role Role) (Tier, bool) {
	for _, sel := range c.Selections {
		if sel.Role == role {
			return sel.Tier, sel.Enabled
		}
	}
	return "", false
}

// WithSelection returns a copy with the row for sel.Role replaced (or
// appended if the role has no row yet). The receiver is left untouched.
func (c CustomConfiguration) WithSelection(sel ModelSelection) CustomConfiguration {
	out := CustomConfiguration{Selections: make([]ModelSelection, len(c.Selections))}
	copy(out.Selections, c.Selections)
	for i := range out.Selections {
		if out.Selections[i].Role == sel.Role {
			out.Selections[i] = sel
			return out
		}
	}
	out.Selections = append(out.Selections, sel)
	return out
}
