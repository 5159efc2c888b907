package evaluator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/trace"
)

// Result is the immutable outcome of one evaluation.
type Result struct {
	RunID    string     `json:"run_id"`
	Graph    string     `json:"graph"`
	Strategy string     `json:"strategy"`
	Task     graph.Task `json:"task"`
	Budget   int        `json:"budget"`

	// RRes is the resilience integral of LCCCurve.
	RRes float64 `json:"r_res"`
	// RResStd is the spread of RRes over random replays; 0 for single runs.
	RResStd float64 `json:"r_res_std"`
	// CollapseFraction is the first normalised step below CollapseThreshold,
	// or nil if the run never collapsed.
	CollapseFraction  *float64  `json:"collapse_fraction"`
	CollapseThreshold float64   `json:"collapse_threshold"`
	LCCCurve          []float64 `json:"lcc_curve"`
	Operations        []string  `json:"operations,omitempty"`
	Runs              int       `json:"runs,omitempty"`

	*ConstructMetrics

	Fallback      *Fallback           `json:"strategy_fallback,omitempty"`
	DegradedSteps int                 `json:"pruning_degraded_steps"`
	Trace         *trace.TraceSummary `json:"trace_summary,omitempty"`
	Decisions     *trace.RunTrace     `json:"trace,omitempty"`
}

// ConstructMetrics scores a constructed graph by attacking it after the run.
type ConstructMetrics struct {
	AttackBudget int `json:"attack_budget"`
	// RTar and RRan are the resilience of the constructed graph under a
	// highest-degree attack and averaged random attacks.
	RTar    float64 `json:"r_tar"`
	RRan    float64 `json:"r_ran"`
	RRanStd float64 `json:"r_ran_std"`
	// ROriginalTar and ROriginalRan are the same attacks on the input graph.
	ROriginalTar float64 `json:"r_original_tar"`
	ROriginalRan float64 `json:"r_original_ran"`
	// RImprovement is (RTar - ROriginalTar) / ROriginalTar, or 0 when the
	// original value is 0.
	RImprovement float64 `json:"r_improvement"`
	AddedEdges   int     `json:"added_edges"`
}

// Fallback records a hand-over from a ranked strategy to the random fallback.
type Fallback struct {
	Step   int    `json:"step"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// GraphInfo describes the evaluated component.
type GraphInfo struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Record is the serialised evaluation of one graph. Field names are stable.
type Record struct {
	GraphName string             `json:"graph_name"`
	GraphPath string             `json:"graph_path,omitempty"`
	GraphInfo GraphInfo          `json:"graph_info"`
	Timestamp string             `json:"timestamp"`
	Dismant   map[string]*Result `json:"dismant,omitempty"`
	Construct map[string]*Result `json:"construct,omitempty"`
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
