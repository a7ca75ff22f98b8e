// Package policy holds the fixed quality/execution presets consulted by the
// orchestrator and the infinite-mode executor.
package policy

import "time"

// VerificationLevel selects how step outputs are checked.
type VerificationLevel string

const (
	VerifyNone        VerificationLevel = "none"
	VerifyLLMReview   VerificationLevel = "llm_review"
	VerifyExpertJudge VerificationLevel = "expert_judge"
)

// Preset names a quality/execution profile.
type Preset string

const (
	PresetFast     Preset = "fast"
	PresetBalanced Preset = "balanced"
	PresetThorough Preset = "thorough"
)

// Policy is the behavior table row for a preset.
type Policy struct {
	Preset            Preset
	RequiresPlanning  bool
	VerificationLevel VerificationLevel
	RetryLimit        int
	TargetTime        time.Duration
}

var table = map[Preset]Policy{
	PresetFast: {
		Preset:            PresetFast,
		RequiresPlanning:  false,
		VerificationLevel: VerifyNone,
		RetryLimit:        0,
		TargetTime:        30 * time.Second,
	},
	PresetBalanced: {
		Preset:            PresetBalanced,
		RequiresPlanning:  false,
		VerificationLevel: VerifyLLMReview,
		RetryLimit:        1,
		TargetTime:        2 * time.Minute,
	},
	PresetThorough: {
		Preset:            PresetThorough,
		RequiresPlanning:  true,
		VerificationLevel: VerifyExpertJudge,
		RetryLimit:        2,
		TargetTime:        10 * time.Minute,
	},
}

// For returns the policy for a preset. Unknown presets get balanced.
func For(p Preset) Policy {
	if pol, ok := table[p]; ok {
		return pol
	}
	return table[PresetBalanced]
}

// Presets lists the known preset names.
func Presets() []Preset {
	return []Preset{PresetFast, PresetBalanced, PresetThorough}
}
