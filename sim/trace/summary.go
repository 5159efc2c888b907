package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalSteps           int            `json:"total_steps"`
	MeanRegret           float64        `json:"mean_regret"`
	MaxRegret            float64        `json:"max_regret"`
	DegradedPrunings     int            `json:"degraded_prunings"`
	Fallbacks            int            `json:"fallbacks"`
	StrategyDistribution map[string]int `json:"strategy_distribution"` // strategy name → steps decided
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		StrategyDistribution: make(map[string]int),
	}
	if rt == nil {
		return summary
	}

	summary.TotalSteps = len(rt.Steps)
	if len(rt.Steps) > 0 {
		totalRegret := 0.0
		for _, s := range rt.Steps {
			summary.StrategyDistribution[s.Strategy]++
			totalRegret += s.Regret
			if s.Regret > summary.MaxRegret {
				summary.MaxRegret = s.Regret
			}
		}
		summary.MeanRegret = totalRegret / float64(len(rt.Steps))
	}

	for _, p := range rt.Prunings {
		if p.Degraded {
			summary.DegradedPrunings++
		}
	}
	summary.Fallbacks = len(rt.Fallbacks)

	return summary
}
