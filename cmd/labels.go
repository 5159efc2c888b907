package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resilience-sim/resilience-sim/sim"
	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/ranking"
	"github.com/resilience-sim/resilience-sim/sim/resilience"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
)

var (
	labelsGraphPath string
	labelsTask      string
	labelsTopK      int
	labelsOutput    string
)

// LabelledCandidate is one pruned candidate with its spectral score and its
// ground-truth impact label.
type LabelledCandidate struct {
	Op    string  `json:"op"`
	Score float64 `json:"score"`
	Label float64 `json:"label"`
	// Node describes the removed node; set for dismantle candidates only.
	Node *graph.NodeInfo `json:"node,omitempty"`
}

// LabelReport is the labels command output.
type LabelReport struct {
	Graph       string              `json:"graph"`
	Task        graph.Task          `json:"task"`
	Nodes       int                 `json:"nodes"`
	Degraded    bool                `json:"degraded"`
	Candidates  []LabelledCandidate `json:"candidates"`
	NDCG        float64             `json:"ndcg"`
	MRR         float64             `json:"mrr"`
	KendallTau  float64             `json:"kendall_tau"`
	PrecisionAt float64             `json:"precision_at_5"`
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Label pruned candidates with their impact",
	Long: "Prune the candidate operations of a graph with the spectral pruner and label each with its " +
		"impact: the LCC drop of a node removal or the LCC gain of an edge addition. The report also " +
		"scores how well the spectral order agrees with the labels.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig(cmd)
		if labelsTopK > 0 {
			cfg.Spectral.TopK = labelsTopK
		}
		g, err := graph.ReadFile(labelsGraphPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		report, err := labelCandidates(cfg, g, graph.Task(labelsTask))
		if err != nil {
			logrus.Fatalf("Labelling failed: %v", err)
		}
		if err := emitJSON(labelsOutput, report); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func labelCandidates(cfg sim.EvalConfig, g *graph.Graph, task graph.Task) (*LabelReport, error) {
	if task != graph.Dismantle && task != graph.Construct {
		return nil, fmt.Errorf("unknown task %q", task)
	}
	s, err := graph.Load(g, cfg.MinNodes)
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewRunKey(cfg.Seed)).ForSubsystem(sim.SubsystemPruner)
	cands := spectral.NewPruner(cfg.Spectral, rng).Prune(s, task)
	if cands.Degraded {
		logrus.Warnf("Eigensolver did not converge on %s, candidates are unranked: %v", g.Name(), cands.Err)
	}

	ops := cands.Ops()
	labels := resilience.LabelCandidates(s, ops)
	scores := make([]float64, len(ops))
	var info map[graph.NodeID]graph.NodeInfo
	if task == graph.Dismantle {
		nodes := make([]graph.NodeID, len(ops))
		for i, op := range ops {
			nodes[i] = op.Node
		}
		info = make(map[graph.NodeID]graph.NodeInfo, len(nodes))
		for _, ni := range s.Graph().Info(nodes) {
			info[ni.ID] = ni
		}
	}

	report := &LabelReport{
		Graph:      g.Name(),
		Task:       task,
		Nodes:      s.OriginalNodes(),
		Degraded:   cands.Degraded,
		Candidates: make([]LabelledCandidate, len(ops)),
	}
	for i, it := range cands.Items {
		scores[i] = it.Score
		lc := LabelledCandidate{Op: it.Op.ID(), Score: it.Score, Label: labels[i]}
		if ni, ok := info[it.Op.Node]; ok {
			lc.Node = &ni
		}
		report.Candidates[i] = lc
	}
	report.NDCG = ranking.NDCG(scores, labels, len(ops))
	report.MRR = ranking.MRR(scores, labels)
	report.KendallTau = ranking.KendallTau(scores, labels)
	report.PrecisionAt = ranking.PrecisionAtK(scores, labels, 5)
	return report, nil
}

func init() {
	labelsCmd.Flags().StringVar(&labelsGraphPath, "graph", "", "Graph file")
	labelsCmd.Flags().StringVar(&labelsTask, "task", string(graph.Dismantle), "Task: dismantle or construct")
	labelsCmd.Flags().IntVar(&labelsTopK, "top-k", 0, "Override the configured number of candidates kept")
	labelsCmd.Flags().StringVar(&labelsOutput, "output", "", "Write the report here instead of stdout")
	_ = labelsCmd.MarkFlagRequired("graph")

	rootCmd.AddCommand(labelsCmd)
}
