package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/resilience-sim/resilience-sim/sim"
	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/resilience"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
	"github.com/resilience-sim/resilience-sim/sim/strategy"
	"github.com/resilience-sim/resilience-sim/sim/telemetry"
	"github.com/resilience-sim/resilience-sim/sim/trace"
)

// Evaluator runs evaluations under one configuration. It holds no per-run
// state, so concurrent evaluations of different graphs are safe.
type Evaluator struct {
	cfg     sim.EvalConfig
	metrics *telemetry.Registry
}

// New creates an Evaluator. metrics may be nil.
func New(cfg sim.EvalConfig, metrics *telemetry.Registry) *Evaluator {
	return &Evaluator{cfg: cfg, metrics: metrics}
}

// Config returns the evaluation configuration.
func (e *Evaluator) Config() sim.EvalConfig { return e.cfg }

// RunOption adjusts a single evaluation.
type RunOption func(*runOptions)

type runOptions struct {
	budget int
}

// WithBudget overrides the configured budget when n > 0. Values beyond the
// legal candidate space are clamped.
func WithBudget(n int) RunOption {
	return func(o *runOptions) { o.budget = n }
}

func collect(opts []RunOption) runOptions {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EvaluateDismantle removes budget nodes chosen by strat from the largest
// component of g.
func (e *Evaluator) EvaluateDismantle(ctx context.Context, g *graph.Graph, strat strategy.Strategy, opts ...RunOption) (*Result, error) {
	s, err := graph.Load(g, e.cfg.MinNodes)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	budget := o.budget
	if budget == 0 {
		budget = e.cfg.NodeBudget(s.OriginalNodes())
	}
	budget = clampBudget(s, graph.Dismantle, budget)
	return e.run(ctx, s, graph.Dismantle, budget, strat, e.cfg.Trace, e.metrics)
}

// EvaluateConstruct adds budget edges chosen by strat to the largest
// component of g and scores the result with post-hoc attacks.
func (e *Evaluator) EvaluateConstruct(ctx context.Context, g *graph.Graph, strat strategy.Strategy, opts ...RunOption) (*Result, error) {
	s, err := graph.Load(g, e.cfg.MinNodes)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	budget := o.budget
	if budget == 0 {
		budget = e.cfg.EdgeBudget(s.Graph().EdgeCount())
	}
	return e.construct(ctx, s, clampBudget(s, graph.Construct, budget), strat)
}

// EvaluateReconstructed scores a reconstructed version of original. The edges
// of reconstructed that join nodes of the original component and are absent
// from it are replayed in identifier order as a construct run.
func (e *Evaluator) EvaluateReconstructed(ctx context.Context, original, reconstructed *graph.Graph) (*Result, error) {
	s, err := graph.Load(original, e.cfg.MinNodes)
	if err != nil {
		return nil, err
	}
	var added []graph.Operation
	for _, edge := range reconstructed.Edges() {
		op := graph.AddEdge(edge.U, edge.V)
		if s.IsLegal(op, graph.Construct) {
			added = append(added, op)
		}
	}
	logrus.Infof("graph %q: reconstructed graph adds %d edges", s.Name(), len(added))
	return e.construct(ctx, s, len(added), strategy.NewSequence("reconstructed", added))
}

// EvaluateBoth runs a dismantle and a construct evaluation independently on g.
// Nil strategies default to highest-degree.
func (e *Evaluator) EvaluateBoth(ctx context.Context, g *graph.Graph, dismantle, construct strategy.Strategy) (*Record, error) {
	return e.Evaluate(ctx, g, Request{Task: "both", Dismantle: dismantle, Construct: construct})
}

// EvaluateDismantleWithBaselines evaluates strat plus the highest-degree and
// averaged random baselines, keyed by strategy name. strat may be nil. A
// built-in strat is not run twice: its entry is the baseline itself, so a
// random strat always reports the averaged random_runs result.
func (e *Evaluator) EvaluateDismantleWithBaselines(ctx context.Context, g *graph.Graph, strat strategy.Strategy, opts ...RunOption) (map[string]*Result, error) {
	out := make(map[string]*Result)
	if strat != nil && !isBaseline(strat) {
		res, err := e.EvaluateDismantle(ctx, g, strat, opts...)
		if err != nil {
			return nil, err
		}
		out[callerKey(strat)] = res
	}
	res, err := e.EvaluateDismantle(ctx, g, strategy.HighestDegree{}, opts...)
	if err != nil {
		return nil, err
	}
	out[strategy.NameHighestDegree] = res
	if res, err = e.randomDismantle(ctx, g, opts...); err != nil {
		return nil, err
	}
	out[strategy.NameRandom] = res
	return out, nil
}

// EvaluateConstructWithBaselines evaluates strat plus highest-degree and
// random construction, keyed by strategy name. strat may be nil.
func (e *Evaluator) EvaluateConstructWithBaselines(ctx context.Context, g *graph.Graph, strat strategy.Strategy, opts ...RunOption) (map[string]*Result, error) {
	out := make(map[string]*Result)
	if strat != nil && !isBaseline(strat) {
		res, err := e.EvaluateConstruct(ctx, g, strat, opts...)
		if err != nil {
			return nil, err
		}
		out[callerKey(strat)] = res
	}
	for _, st := range []strategy.Strategy{strategy.HighestDegree{}, strategy.Random{}} {
		res, err := e.EvaluateConstruct(ctx, g, st, opts...)
		if err != nil {
			return nil, err
		}
		out[st.Name()] = res
	}
	return out, nil
}

// isBaseline reports whether strat is one of the built-in baseline strategies.
func isBaseline(strat strategy.Strategy) bool {
	switch strat.(type) {
	case strategy.HighestDegree, *strategy.HighestDegree, strategy.Random, *strategy.Random:
		return true
	}
	return false
}

// callerKey is the result key of a non-baseline strategy. Names that shadow a
// baseline key, such as a sequence read from random.txt, get a ranked/ prefix.
func callerKey(strat strategy.Strategy) string {
	name := strat.Name()
	if name == strategy.NameHighestDegree || name == strategy.NameRandom {
		return strategy.NameRanked + "/" + name
	}
	return name
}

// randomDismantle averages random_runs seeded random dismantle runs.
func (e *Evaluator) randomDismantle(ctx context.Context, g *graph.Graph, opts ...RunOption) (*Result, error) {
	s, err := graph.Load(g, e.cfg.MinNodes)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	budget := o.budget
	if budget == 0 {
		budget = e.cfg.NodeBudget(s.OriginalNodes())
	}
	budget = clampBudget(s, graph.Dismantle, budget)
	scope := sim.SubsystemScope(s.Name(), "dismantle/"+strategy.NameRandom)
	curves, rres, err := e.replay(ctx, s, graph.Dismantle, budget, strategy.Random{}, scope, e.cfg.RandomRuns)
	if err != nil {
		return nil, err
	}
	avg := resilience.AverageTraces(curves)
	_, std := resilience.MeanStd(rres)
	return &Result{
		RunID:             uuid.NewString(),
		Graph:             s.Name(),
		Strategy:          strategy.NameRandom,
		Task:              graph.Dismantle,
		Budget:            budget,
		RRes:              resilience.Integral(avg),
		RResStd:           std,
		CollapseFraction:  resilience.CollapseFraction(avg, e.cfg.CollapseThreshold),
		CollapseThreshold: e.cfg.CollapseThreshold,
		LCCCurve:          avg.Values(),
		Runs:              len(curves),
	}, nil
}

// construct runs strat on s, then attacks both the input and the result.
func (e *Evaluator) construct(ctx context.Context, s *graph.State, budget int, strat strategy.Strategy) (*Result, error) {
	original := s.Clone()
	res, err := e.run(ctx, s, graph.Construct, budget, strat, e.cfg.Trace, e.metrics)
	if err != nil {
		return nil, err
	}
	attackBudget := e.cfg.PostAttackBudget(original.OriginalNodes())
	// Both graphs share one node set, so a shared scope replays the same
	// random removal sequences against each.
	scope := sim.SubsystemScope(s.Name(), "construct/"+strat.Name()+"/attack")

	cm := &ConstructMetrics{AttackBudget: attackBudget, AddedEdges: len(res.Operations)}
	if cm.RTar, _, err = e.attack(ctx, s.Reset(), strategy.HighestDegree{}, attackBudget, scope, 1); err != nil {
		return nil, err
	}
	if cm.RRan, cm.RRanStd, err = e.attack(ctx, s.Reset(), strategy.Random{}, attackBudget, scope, e.cfg.RandomRuns); err != nil {
		return nil, err
	}
	if cm.ROriginalTar, _, err = e.attack(ctx, original.Reset(), strategy.HighestDegree{}, attackBudget, scope, 1); err != nil {
		return nil, err
	}
	if cm.ROriginalRan, _, err = e.attack(ctx, original.Reset(), strategy.Random{}, attackBudget, scope, e.cfg.RandomRuns); err != nil {
		return nil, err
	}
	if cm.ROriginalTar != 0 {
		cm.RImprovement = (cm.RTar - cm.ROriginalTar) / cm.ROriginalTar
	}
	res.ConstructMetrics = cm
	logrus.Infof("graph %q: %s construct r_tar=%.4f (was %.4f) r_ran=%.4f (was %.4f)",
		s.Name(), strat.Name(), cm.RTar, cm.ROriginalTar, cm.RRan, cm.ROriginalRan)
	return res, nil
}

// attack dismantles runs independent copies of s and returns the integral of
// the averaged curve and the spread of the per-run integrals.
func (e *Evaluator) attack(ctx context.Context, s *graph.State, strat strategy.Strategy, budget int, scope string, runs int) (float64, float64, error) {
	budget = min(budget, s.LegalCount(graph.Dismantle))
	curves, rres, err := e.replay(ctx, s, graph.Dismantle, budget, strat, sim.SubsystemScope(scope, strat.Name()), runs)
	if err != nil {
		return 0, 0, err
	}
	_, std := resilience.MeanStd(rres)
	return resilience.Integral(resilience.AverageTraces(curves)), std, nil
}

// replay executes runs independent copies of a run on clones of s, each with
// its own replay stream. Replays are not traced or counted in telemetry.
func (e *Evaluator) replay(ctx context.Context, s *graph.State, task graph.Task, budget int, strat strategy.Strategy, scope string, runs int) ([]resilience.Trace, []float64, error) {
	rngs := sim.NewPartitionedRNG(sim.NewRunKey(e.cfg.Seed))
	curves := make([]resilience.Trace, 0, runs)
	rres := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		r := newRun(s.Clone(), runParams{
			task:      task,
			budget:    budget,
			threshold: e.cfg.CollapseThreshold,
			strat:     strat,
			rng:       rngs.Fresh(sim.SubsystemScope(scope, sim.SubsystemReplay(i))),
		})
		res, err := r.Execute(ctx)
		if err != nil {
			return nil, nil, err
		}
		curves = append(curves, resilience.NewTrace(res.LCCCurve...))
		rres = append(rres, res.RRes)
	}
	return curves, rres, nil
}

// run executes one traced run of strat on s.
func (e *Evaluator) run(ctx context.Context, s *graph.State, task graph.Task, budget int, strat strategy.Strategy, tc trace.TraceConfig, metrics *telemetry.Registry) (*Result, error) {
	rngs := sim.NewPartitionedRNG(sim.NewRunKey(e.cfg.Seed))
	scope := sim.SubsystemScope(s.Name(), fmt.Sprintf("%s/%s", task, strat.Name()))
	r := newRun(s, runParams{
		task:        task,
		budget:      budget,
		threshold:   e.cfg.CollapseThreshold,
		strat:       strat,
		rng:         rngs.Fresh(sim.SubsystemScope(scope, sim.SubsystemStrategy)),
		fallbackRNG: rngs.Fresh(sim.SubsystemScope(scope, sim.SubsystemFallback)),
		pruner:      spectral.NewPruner(e.cfg.Spectral, rngs.Fresh(sim.SubsystemScope(scope, sim.SubsystemPruner))),
		traceCfg:    tc,
		metrics:     metrics,
	})
	logrus.Infof("graph %q: %s %s, budget %d", s.Name(), task, strat.Name(), budget)
	start := time.Now()
	res, err := r.Execute(ctx)
	if err != nil {
		metrics.RecordRun(string(task), strat.Name(), telemetry.StatusError, time.Since(start), 0)
		return nil, err
	}
	metrics.RecordRun(string(task), strat.Name(), telemetry.StatusOK, time.Since(start), res.RRes)
	return res, nil
}

// clampBudget limits budget to the legal candidate space.
func clampBudget(s *graph.State, task graph.Task, budget int) int {
	if budget < 0 {
		return 0
	}
	if legal := s.LegalCount(task); budget > legal {
		logrus.Warnf("graph %q: %s budget %d exceeds %d legal candidates; clamping", s.Name(), task, budget, legal)
		return legal
	}
	return budget
}
