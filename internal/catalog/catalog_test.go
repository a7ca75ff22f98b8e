package catalog

import "testing"

func TestVariantLookup(t *testing.T) {
	v, err := Variant(RoleCoder, TierMedium)
	if err != nil {
		t.Fatalf("Variant failed: %v", err)
	}
	if v.Tier != TierMedium {
		t.Errorf("got tier %s, want %s", v.Tier, TierMedium)
	}
	if v.Name == "" || v.EstimatedRAMGB <= 0 || v.DiskSizeGB <= 0 {
		t.Errorf("variant has zero fields: %+v", v)
	}
}

func TestVariantUnknownRole(t *testing.T) {
	if _, err := Variant(Role("janitor"), TierSmall); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestOptionsSortedAscending(t *testing.T) {
	for _, role := range AllRoles {
		opts, err := Options(role)
		if err != nil {
			t.Fatalf("Options(%s) failed: %v", role, err)
		}
		if len(opts) != 3 {
			t.Fatalf("expected 3 options for %s, got %d", role, len(opts))
		}
		for i := 1; i < len(opts); i++ {
			if opts[i].Tier.Rank() <= opts[i-1].Tier.Rank() {
				t.Errorf("%s options not ascending: %v before %v", role, opts[i-1].Tier, opts[i].Tier)
			}
			if opts[i].Variant.EstimatedRAMGB < opts[i-1].Variant.EstimatedRAMGB {
				t.Errorf("%s RAM estimate not monotonic across tiers", role)
			}
		}
	}
}

func TestCatalogComplete(t *testing.T) {
	// Every (role, tier) pair must have a variant.
	for _, role := range AllRoles {
		for _, tier := range AllTiers {
			if _, err := Variant(role, tier); err != nil {
				t.Errorf("missing variant for %s/%s: %v", role, tier, err)
			}
		}
	}
}

func TestBuildPool(t *testing.T) {
	cfg := CustomConfiguration{Selections: []ModelSelection{
		{Role: RoleCoder, Tier: TierSmall, Enabled: true},
		{Role: RoleVision, Tier: TierLarge, Enabled: false},
	}}

	pool, err := BuildPool(cfg)
	if err != nil {
		t.Fatalf("BuildPool failed: %v", err)
	}
	if len(pool) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(pool))
	}
	agent, ok := pool[RoleCoder]
	if !ok {
		t.Fatal("coder missing from pool")
	}
	if !agent.HasCapability(CapCodeGeneration) {
		t.Error("coder should carry code_generation")
	}
	if agent.HasCapability(CapImageAnalysis) {
		t.Error("coder should not carry image_analysis")
	}
}

func TestRoleForDefaultsToOrchestrator(t *testing.T) {
	if got := RoleFor(CapPlanning); got != RoleOrchestrator {
		t.Errorf("planning should map to orchestrator, got %s", got)
	}
	if got := RoleFor(TaskCapability("unknown")); got != RoleOrchestrator {
		t.Errorf("unknown capability should map to orchestrator, got %s", got)
	}
}

func TestWithSelectionDoesNotMutateReceiver(t *testing.T) {
	base := CustomConfiguration{Selections: []ModelSelection{
		{Role: RoleCoder, Tier: TierSmall, Enabled: true},
	}}

	updated := base.WithSelection(ModelSelection{Role: RoleCoder, Tier: TierLarge, Enabled: true})

	if base.Selections[0].Tier != TierSmall {
		t.Error("WithSelection mutated the receiver")
	}
	if updated.Selections[0].Tier != TierLarge {
		t.Error("WithSelection did not update the copy")
	}
}
