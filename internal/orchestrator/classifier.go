package orchestrator

import (
	"strings"

	"cycled/internal/catalog"
)

// Classifier maps free-form task text to the capability it most likely
// requires. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(task string) catalog.TaskCapability
}

// KeywordClassifier is the default heuristic classifier: it scores each
// capability by keyword occurrences in the lowercased task text and picks
// the highest scorer. Ambiguous or empty tasks fall back to planning,
// which routes to the orchestrator role.
type KeywordClassifier struct{}

// capabilityKeywords is scanned in a fixed order so that ties resolve
// deterministically.
var capabilityKeywords = []struct {
	capability catalog.TaskCapability
	words      []string
}{
	{catalog.CapImageAnalysis, []string{"screenshot", "image", "diagram", "ui mockup", "visual", "picture", "render"}},
	{catalog.CapDebugging, []string{"debug", "fix", "bug", "crash", "error", "broken", "failing", "stack trace", "panic"}},
	{catalog.CapCodeReview, []string{"review", "critique", "audit", "lint", "code quality"}},
	{catalog.CapCodeGeneration, []string{"implement", "write code", "create a function", "refactor", "add a", "build a", "generate code", "write a"}},
	{catalog.CapResearch, []string{"research", "investigate", "find out", "look up", "compare", "explore", "what is", "how does"}},
	{catalog.CapDocumentation, []string{"document", "readme", "docstring", "comment", "explain the code", "write docs"}},
	{catalog.CapSynthesis, []string{"summarize", "combine", "synthesize", "merge results", "report"}},
	{catalog.CapPlanning, []string{"plan", "design", "architect", "break down", "roadmap", "strategy"}},
}

func (KeywordClassifier) Classify(task string) catalog.TaskCapability {
	text := strings.ToLower(task)

	best := catalog.CapPlanning
	bestScore := 0
	for _, entry := range capabilityKeywords {
		score := 0
		for _, w := range entry.words {
			score += strings.Count(text, w)
		}
		if score > bestScore {
			best = entry.capability
			bestScore = score
		}
	}
	return best
}
