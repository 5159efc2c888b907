// Package trace provides decision-trace recording for evaluation runs.
// This package has no dependencies on other sim/ packages; it stores pure data types.
package trace

// CandidateScore captures a counterfactual candidate operation with its spectral score.
type CandidateScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// StepRecord captures one strategy decision with optional counterfactual analysis.
type StepRecord struct {
	Step        int              `json:"step"`
	Strategy    string           `json:"strategy"`
	Operation   string           `json:"operation"`
	Reason      string           `json:"reason"`
	LCCFraction float64          `json:"lcc_fraction"`
	Candidates  []CandidateScore `json:"candidates,omitempty"` // top-k candidates sorted by score desc (nil if k=0)
	Regret      float64          `json:"regret"`               // best candidate score - score(chosen); 0 if chosen is best or unscored
}

// PruningRecord captures the pruner outcome for one step.
type PruningRecord struct {
	Step       int    `json:"step"`
	Candidates int    `json:"candidates"`
	Degraded   bool   `json:"degraded"`
	Iterations int    `json:"iterations"`
	Error      string `json:"error,omitempty"`
}

// FallbackRecord captures a strategy hand-over.
type FallbackRecord struct {
	Step   int    `json:"step"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}
