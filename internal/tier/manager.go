// Package tier decides which model configurations fit the host.
// It detects system memory once, analyzes candidate configurations against
// that budget, and derives runtime memory settings. Analysis is purely
// predictive: nothing here enforces limits against the inference runtime.
package tier

import (
	"fmt"
	"strings"
	"time"

	"cycled/internal/catalog"
	"cycled/internal/logging"
)

// Calibration constants. The overhead factor covers runtime context buffers
// on top of the per-model RAM estimate; the safety factor reserves headroom
// for the OS and everything else on the host.
const (
	overheadFactor = 1.2
	safetyFactor   = 0.8

	// upgradeHeadroomGB is the spare budget above which the analysis
	// suggests moving a model up a tier.
	upgradeHeadroomGB = 8.0

	// defaultRAMGB is assumed when memory detection fails.
	defaultRAMGB = 8.0
)

// Analysis is the derived, immutable snapshot of a configuration against
// the detected memory budget. Pure function of (configuration, system RAM).
type Analysis struct {
	CanFit            bool
	EstimatedRAMGB    float64
	TotalDiskGB       float64
	SpeedRating       float64 // 0-10, smaller tiers are faster
	QualityRating     float64 // 0-10, larger tiers are better
	Recommendation    string
	ModelDescriptions []string
}

// MemorySettings are the runtime knobs derived from the recommended tier.
type MemorySettings struct {
	ContextWindow int
	KeepAlive     time.Duration
}

// Manager answers fit and tradeoff questions for model configurations.
// It never mutates a configuration.
type Manager struct {
	systemRAMGB float64
	detected    bool
}

// NewManager probes host memory once and returns a manager. A nil probe
// uses /proc/meminfo. Probe failure falls back to a conservative default.
func NewManager(probe MemoryProbe) *Manager {
	if probe == nil {
		probe = ProcMeminfoProbe{}
	}

	ram, err := probe.TotalRAMGB()
	if err != nil || ram <= 0 {
		logging.L(logging.CategoryTier).Warnw("memory detection failed, using default",
			"default_gb", defaultRAMGB, "error", err)
		return &Manager{systemRAMGB: defaultRAMGB, detected: false}
	}

	logging.L(logging.CategoryTier).Infow("detected system memory", "ram_gb", ram)
	return &Manager{systemRAMGB: ram, detected: true}
}

// NewManagerWithRAM builds a manager with a known memory size. Used by
// tests and by callers that probe elsewhere.
func NewManagerWithRAM(ramGB float64) *Manager {
	return &Manager{systemRAMGB: ramGB, detected: true}
}

// SystemRAMGB returns the detected (or assumed) host memory.
func (m *Manager) SystemRAMGB() float64 { return m.systemRAMGB }

// Detected reports whether memory probing succeeded.
func (m *Manager) Detected() bool { return m.detected }

// RecommendedTier maps the memory budget to a tier band.
func (m *Manager) RecommendedTier() catalog.Tier {
	return RecommendedTier(m.systemRAMGB)
}

// RecommendedTier maps a RAM size to the tier band it can comfortably run.
func RecommendedTier(ramGB float64) catalog.Tier {
	switch {
	case ramGB >= 32:
		return catalog.TierLarge
	case ramGB >= 16:
		return catalog.TierMedium
	default:
		return catalog.TierSmall
	}
}

// CreateDefaultConfiguration enables one model per role at the recommended tier.
func (m *Manager) CreateDefaultConfiguration() catalog.CustomConfiguration {
	tier := m.RecommendedTier()
	cfg := catalog.CustomConfiguration{}
	for _, role := range catalog.AllRoles {
		cfg.Selections = append(cfg.Selections, catalog.ModelSelection{
			Role:    role,
			Tier:    tier,
			Enabled: true,
		})
	}
	return cfg
}

// ModelOptions returns a role's variants sorted ascending by size.
func (m *Manager) ModelOptions(role catalog.Role) ([]catalog.ModelOption, error) {
	return catalog.Options(role)
}

// AnalyzeConfiguration computes fit and tradeoff ratings for a configuration.
// Identical inputs always produce identical output; the configuration is
// never modified.
func (m *Manager) AnalyzeConfiguration(cfg catalog.CustomConfiguration) (Analysis, error) {
	enabled := cfg.EnabledSelections()

	a := Analysis{CanFit: true}
	if len(enabled) == 0 {
		a.Recommendation = "Select at least one model to run tasks."
		return a, nil
	}

	speedSum, qualitySum := 0.0, 0.0
	var largest *catalog.ModelSelection
	for i, sel := range enabled {
		v, err := catalog.Variant(sel.Role, sel.Tier)
		if err != nil {
			return Analysis{}, err
		}
		a.TotalDiskGB += v.DiskSizeGB
		a.EstimatedRAMGB += v.EstimatedRAMGB * overheadFactor
		a.ModelDescriptions = append(a.ModelDescriptions,
			fmt.Sprintf("%s: %s (%s, %.1f GB disk, ~%.1f GB RAM)",
				sel.Role, v.Name, v.ParameterCount, v.DiskSizeGB, v.EstimatedRAMGB))

		// Speed is inverse to tier rank, quality is direct.
		speedSum += float64(2 - sel.Tier.Rank())
		qualitySum += float64(sel.Tier.Rank() + 1)

		if largest == nil || enabled[i].Tier.Rank() > largest.Tier.Rank() {
			largest = &enabled[i]
		}
	}

	n := float64(len(enabled))
	a.SpeedRating = speedSum / n / 2 * 10
	a.QualityRating = qualitySum / n / 3 * 10

	budget := m.systemRAMGB * safetyFactor
	a.CanFit = a.EstimatedRAMGB <= budget
	a.Recommendation = m.recommend(a, budget, enabled, largest)
	return a, nil
}

func (m *Manager) recommend(a Analysis, budget float64, enabled []catalog.ModelSelection, largest *catalog.ModelSelection) string {
	if !a.CanFit {
		if largest != nil && largest.Tier.Rank() > 0 {
			return fmt.Sprintf("Estimated %.1f GB exceeds the %.1f GB budget. Downgrade %s from %s tier.",
				a.EstimatedRAMGB, budget, largest.Role, largest.Tier)
		}
		return fmt.Sprintf("Estimated %.1f GB exceeds the %.1f GB budget. Disable a model.",
			a.EstimatedRAMGB, budget)
	}

	if budget-a.EstimatedRAMGB >= upgradeHeadroomGB {
		for _, sel := range enabled {
			if sel.Tier.Rank() < catalog.TierLarge.Rank() {
				return fmt.Sprintf("%.1f GB of headroom available. Consider upgrading %s beyond %s tier.",
					budget-a.EstimatedRAMGB, sel.Role, sel.Tier)
			}
		}
	}

	return "Configuration fits the available memory."
}

// GetMemorySettings derives runtime settings from the recommended tier and
// the fit of the given configuration. Larger tiers trade a smaller context
// window for quality; a configuration that does not fit halves the window
// again to leave room for the runtime.
func (m *Manager) GetMemorySettings(cfg catalog.CustomConfiguration) (MemorySettings, error) {
	a, err := m.AnalyzeConfiguration(cfg)
	if err != nil {
		return MemorySettings{}, err
	}

	settings := MemorySettings{KeepAlive: 5 * time.Minute}
	switch m.RecommendedTier() {
	case catalog.TierLarge:
		settings.ContextWindow = 4096
		settings.KeepAlive = 30 * time.Minute
	case catalog.TierMedium:
		settings.ContextWindow = 6144
		settings.KeepAlive = 10 * time.Minute
	default:
		settings.ContextWindow = 8192
	}

	if !a.CanFit {
		settings.ContextWindow /= 2
		settings.KeepAlive = time.Minute
	}
	return settings, nil
}

// DescribeConfiguration renders a single-line summary used in logs and CLI
// output.
func DescribeConfiguration(cfg catalog.CustomConfiguration) string {
	parts := make([]string, 0, len(cfg.Selections))
	for _, sel := range cfg.Selections {
		state := "off"
		if sel.Enabled {
			state = string(sel.Tier)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", sel.Role, state))
	}
	return strings.Join(parts, " ")
}
