package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resilience-sim/resilience-sim/sim"
	"github.com/resilience-sim/resilience-sim/sim/evaluator"
	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/strategy"
)

// evaluateOptions mirrors the evaluate flags.
type evaluateOptions struct {
	GraphPath         string
	Task              string
	Strategy          string
	SequencePath      string
	RankerURL         string
	RankerTimeout     time.Duration
	ReconstructedPath string
	Baselines         bool
	Budget            int
	OutputPath        string
}

var evalOpts = evaluateOptions{}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a strategy on one graph",
	Long: "Load a graph, reduce it to its largest component, and run the chosen strategy for the " +
		"configured budget. The result JSON is written to --output or stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig(cmd)
		ev, reg := newEvaluator(cfg)
		out, err := runEvaluate(cmd.Context(), ev, evalOpts)
		flushMetrics(reg)
		if err != nil {
			logrus.Fatalf("Evaluation failed: %v", err)
		}
		if err := emitJSON(evalOpts.OutputPath, out); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// runEvaluate returns a *evaluator.Result for --reconstructed and a
// *evaluator.Record otherwise.
func runEvaluate(ctx context.Context, ev *evaluator.Evaluator, opts evaluateOptions) (any, error) {
	g, err := graph.ReadFile(opts.GraphPath)
	if err != nil {
		return nil, err
	}
	if opts.ReconstructedPath != "" {
		rec, err := graph.ReadFile(opts.ReconstructedPath)
		if err != nil {
			return nil, err
		}
		return ev.EvaluateReconstructed(ctx, g, rec)
	}

	strat, err := buildStrategy(opts)
	if err != nil {
		return nil, err
	}
	var runOpts []evaluator.RunOption
	if opts.Budget > 0 {
		runOpts = append(runOpts, evaluator.WithBudget(opts.Budget))
	}
	req := evaluator.Request{
		Path:      opts.GraphPath,
		Task:      opts.Task,
		Dismantle: strat,
		Construct: strat,
		Baselines: opts.Baselines,
		Options:   runOpts,
	}
	logrus.Infof("Evaluating %s (%s, %d nodes, %d edges)", g.Name(), opts.Task, g.NodeCount(), g.EdgeCount())
	return ev.Evaluate(ctx, g, req)
}

// buildStrategy resolves at most one of --strategy, --sequence and --ranker-url.
// A nil strategy lets the evaluator fall back to highest-degree.
func buildStrategy(opts evaluateOptions) (strategy.Strategy, error) {
	set := 0
	for _, s := range []string{opts.Strategy, opts.SequencePath, opts.RankerURL} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("--strategy, --sequence and --ranker-url are mutually exclusive")
	}
	switch {
	case opts.SequencePath != "":
		if opts.Task == evaluator.TaskBoth {
			return nil, fmt.Errorf("a sequence drives a single task; use --task dismantle or construct")
		}
		name, ops, err := ReadSequence(opts.SequencePath)
		if err != nil {
			return nil, err
		}
		return strategy.NewSequence(name, ops), nil
	case opts.RankerURL != "":
		return strategy.NewRanked(strategy.NameRanked, strategy.NewHTTPRanker(opts.RankerURL, opts.RankerTimeout)), nil
	case opts.Strategy != "":
		if !strategy.ValidStrategies[opts.Strategy] {
			return nil, fmt.Errorf("unknown strategy %q; valid: %s", opts.Strategy, strings.Join(strategy.ValidStrategyNames(), ", "))
		}
		return strategy.New(opts.Strategy), nil
	}
	return nil, nil
}

// emitJSON writes v to path, or indented to stdout when path is empty.
func emitJSON(path string, v any) error {
	if path != "" {
		return evaluator.WriteJSON(path, v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output")
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	evaluateCmd.Flags().StringVar(&evalOpts.GraphPath, "graph", "", "Graph file (edgelist, adjlist, gml, graphml)")
	evaluateCmd.Flags().StringVar(&evalOpts.Task, "task", evaluator.TaskBoth, "Task: "+strings.Join(sim.ValidTaskNames(), ", "))
	evaluateCmd.Flags().StringVar(&evalOpts.Strategy, "strategy", "", "Built-in strategy: "+strings.Join(strategy.ValidStrategyNames(), ", "))
	evaluateCmd.Flags().StringVar(&evalOpts.SequencePath, "sequence", "", "Operation sequence file replayed as an externally ranked strategy")
	evaluateCmd.Flags().StringVar(&evalOpts.RankerURL, "ranker-url", "", "Scoring service that ranks the pruned candidates at every step")
	evaluateCmd.Flags().DurationVar(&evalOpts.RankerTimeout, "ranker-timeout", 30*time.Second, "Per-request timeout for --ranker-url")
	evaluateCmd.Flags().StringVar(&evalOpts.ReconstructedPath, "reconstructed", "", "Compare --graph against this reconstructed graph instead of running a strategy")
	evaluateCmd.Flags().BoolVar(&evalOpts.Baselines, "baselines", true, "Also run the highest-degree and random baselines")
	evaluateCmd.Flags().IntVar(&evalOpts.Budget, "budget", 0, "Override the configured budget (0 = derive from the config fractions)")
	evaluateCmd.Flags().StringVar(&evalOpts.OutputPath, "output", "", "Write the result JSON here instead of stdout")
	_ = evaluateCmd.MarkFlagRequired("graph")

	rootCmd.AddCommand(evaluateCmd)
}
