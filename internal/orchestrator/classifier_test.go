package orchestrator

import (
	"testing"

	"cycled/internal/catalog"
)

func TestKeywordClassifier(t *testing.T) {
	c := KeywordClassifier{}

	tests := []struct {
		task string
		want catalog.TaskCapability
	}{
		{"implement a REST endpoint for user signup", catalog.CapCodeGeneration},
		{"fix the crash on startup, the stack trace is attached", catalog.CapDebugging},
		{"review this pull request for code quality", catalog.CapCodeReview},
		{"research the tradeoffs between SQLite and Postgres", catalog.CapResearch},
		{"write docs and a README for the new module", catalog.CapDocumentation},
		{"analyze this screenshot of the dashboard", catalog.CapImageAnalysis},
		{"summarize the findings into a report", catalog.CapSynthesis},
		{"design the architecture for the ingestion service", catalog.CapPlanning},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			if got := c.Classify(tt.task); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.task, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifierAmbiguousDefaultsToPlanning(t *testing.T) {
	c := KeywordClassifier{}

	for _, task := range []string{"", "do the thing", "asdf qwerty"} {
		if got := c.Classify(task); got != catalog.CapPlanning {
			t.Errorf("Classify(%q) = %q, want planning fallback", task, got)
		}
	}
}

func TestKeywordClassifierRoutesToOrchestrator(t *testing.T) {
	got := KeywordClassifier{}.Classify("no recognizable keywords here whatsoever")
	if role := catalog.RoleFor(got); role != catalog.RoleOrchestrator {
		t.Errorf("ambiguous task routed to %q, want orchestrator", role)
	}
}
