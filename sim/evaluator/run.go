// Package evaluator orchestrates dismantle and construct runs: it prunes
// candidates, asks a strategy for one operation per step, applies it, records
// the LCC trace and aggregates the result against baseline strategies.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/resilience"
	"github.com/resilience-sim/resilience-sim/sim/spectral"
	"github.com/resilience-sim/resilience-sim/sim/strategy"
	"github.com/resilience-sim/resilience-sim/sim/telemetry"
	"github.com/resilience-sim/resilience-sim/sim/trace"
)

// Phase is the lifecycle position of a Run.
type Phase int

const (
	PhaseInitialized Phase = iota
	PhaseStepping
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseStepping:
		return "stepping"
	case PhaseFinalized:
		return "finalized"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// candidateUser is implemented by strategies that read pruned candidates.
type candidateUser interface {
	UsesCandidates() bool
}

// Run is a single dismantle or construct run over an exclusively owned State.
//
// Thread-safety: NOT thread-safe.
type Run struct {
	phase     Phase
	state     *graph.State
	task      graph.Task
	budget    int
	threshold float64

	strat       strategy.Strategy
	active      strategy.Strategy
	rng         *rand.Rand
	fallbackRNG *rand.Rand
	pruner      *spectral.Pruner
	prune       bool

	curve         resilience.Trace
	ops           []graph.Operation
	fallback      *Fallback
	degradedSteps int

	rt      *trace.RunTrace
	metrics *telemetry.Registry
}

// runParams carries everything a Run needs besides its State.
type runParams struct {
	task        graph.Task
	budget      int
	threshold   float64
	strat       strategy.Strategy
	rng         *rand.Rand
	fallbackRNG *rand.Rand
	pruner      *spectral.Pruner
	traceCfg    trace.TraceConfig
	metrics     *telemetry.Registry
}

func newRun(s *graph.State, p runParams) *Run {
	r := &Run{
		phase:       PhaseInitialized,
		state:       s,
		task:        p.task,
		budget:      p.budget,
		threshold:   p.threshold,
		strat:       p.strat,
		active:      p.strat,
		rng:         p.rng,
		fallbackRNG: p.fallbackRNG,
		pruner:      p.pruner,
		rt:          trace.NewRunTrace(p.traceCfg),
		metrics:     p.metrics,
		curve:       resilience.Trace{{Step: 0, LCCFraction: s.LCCFraction()}},
	}
	if cu, ok := p.strat.(candidateUser); ok && cu.UsesCandidates() {
		r.prune = true
	}
	if p.traceCfg.Enabled() && p.traceCfg.CounterfactualK > 0 {
		r.prune = true
	}
	if p.pruner == nil {
		r.prune = false
	}
	return r
}

// Phase returns the current lifecycle position.
func (r *Run) Phase() Phase { return r.phase }

// Done reports whether the budget is spent.
func (r *Run) Done() bool { return r.phase == PhaseFinalized || r.state.Step() >= r.budget }

// Step performs one Stepping transition: prune, select, apply, record.
// A strategy with no legal operation left ends the run early.
func (r *Run) Step(ctx context.Context) error {
	if r.phase == PhaseFinalized {
		return fmt.Errorf("graph %q: step on finalized run", r.state.Name())
	}
	r.phase = PhaseStepping
	if r.state.Step() >= r.budget {
		return fmt.Errorf("graph %q: budget %d exhausted", r.state.Name(), r.budget)
	}
	step := r.state.Step()

	var cands *spectral.Candidates
	if r.prune {
		cands = r.pruner.Prune(r.state, r.task)
		r.recordPruning(step, cands)
	}

	sel, err := r.active.Select(ctx, r.state, r.task, cands, r.activeRNG())
	if err != nil && r.recoverable(err) {
		r.fallBack(step, err)
		sel, err = r.active.Select(ctx, r.state, r.task, cands, r.activeRNG())
	}
	if errors.Is(err, strategy.ErrNoCandidates) {
		logrus.Warnf("graph %q step %d: no legal %s candidates left; ending run early", r.state.Name(), step, r.task)
		r.budget = step
		return nil
	}
	if err != nil {
		return fmt.Errorf("graph %q step %d: strategy %s: %w", r.state.Name(), step, r.active.Name(), err)
	}

	if err := r.state.Apply(sel.Op); err != nil {
		return err
	}
	r.ops = append(r.ops, sel.Op)
	r.curve = append(r.curve, resilience.Point{Step: r.state.Step(), LCCFraction: r.state.LCCFraction()})
	r.recordStep(step, sel, cands)
	logrus.Debugf("graph %q step %d: %s %s (%s) lcc=%.4f", r.state.Name(), step, r.active.Name(), sel.Op, sel.Reason, r.state.LCCFraction())
	return nil
}

// Execute steps until the budget is spent and returns the finalized result.
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	for !r.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.Step(ctx); err != nil {
			return nil, err
		}
	}
	return r.Finalize(), nil
}

// Finalize computes the run metrics. Further Step calls fail.
func (r *Run) Finalize() *Result {
	r.phase = PhaseFinalized
	res := &Result{
		RunID:             uuid.NewString(),
		Graph:             r.state.Name(),
		Strategy:          r.strat.Name(),
		Task:              r.task,
		Budget:            r.budget,
		RRes:              resilience.Integral(r.curve),
		LCCCurve:          r.curve.Values(),
		CollapseFraction:  resilience.CollapseFraction(r.curve, r.threshold),
		CollapseThreshold: r.threshold,
		Fallback:          r.fallback,
		DegradedSteps:     r.degradedSteps,
		Trace:             trace.Summarize(r.rt),
	}
	res.Operations = make([]string, len(r.ops))
	for i, op := range r.ops {
		res.Operations[i] = op.ID()
	}
	if r.rt.Config.Enabled() {
		res.Decisions = r.rt
	}
	return res
}

func (r *Run) activeRNG() *rand.Rand {
	if r.fallback != nil {
		return r.fallbackRNG
	}
	return r.rng
}

// recoverable reports whether err is a ranking failure that hands the rest
// of the run to the random fallback.
func (r *Run) recoverable(err error) bool {
	if r.fallback != nil {
		return false
	}
	var ire *strategy.InvalidRankingError
	return errors.Is(err, strategy.ErrRankingExhausted) || errors.As(err, &ire)
}

func (r *Run) fallBack(step int, cause error) {
	fb := strategy.Random{}
	r.fallback = &Fallback{Step: step, From: r.strat.Name(), To: fb.Name(), Reason: cause.Error()}
	logrus.Warnf("graph %q step %d: %s failed (%v); falling back to %s for %d remaining steps",
		r.state.Name(), step, r.strat.Name(), cause, fb.Name(), r.budget-step)
	r.rt.RecordFallback(trace.FallbackRecord{Step: step, From: r.fallback.From, To: r.fallback.To, Reason: r.fallback.Reason})
	r.metrics.RecordFallback(r.strat.Name())
	r.active = fb
}

func (r *Run) recordPruning(step int, cands *spectral.Candidates) {
	if cands.Degraded {
		r.degradedSteps++
	}
	rec := trace.PruningRecord{Step: step, Candidates: len(cands.Items), Degraded: cands.Degraded, Iterations: cands.Iterations}
	if cands.Err != nil {
		rec.Error = cands.Err.Error()
	}
	r.rt.RecordPruning(rec)
	r.metrics.RecordPruning(cands.Iterations, cands.Degraded)
}

func (r *Run) recordStep(step int, sel strategy.Selection, cands *spectral.Candidates) {
	r.metrics.RecordStep(string(r.task), r.active.Name())
	if !r.rt.Config.Enabled() {
		return
	}
	rec := trace.StepRecord{
		Step:        step,
		Strategy:    r.active.Name(),
		Operation:   sel.Op.ID(),
		Reason:      sel.Reason,
		LCCFraction: r.state.LCCFraction(),
	}
	if cands != nil && !cands.Degraded && len(cands.Items) > 0 {
		k := min(r.rt.Config.CounterfactualK, len(cands.Items))
		for _, c := range cands.Items[:k] {
			rec.Candidates = append(rec.Candidates, trace.CandidateScore{ID: c.Op.ID(), Score: c.Score})
		}
		for _, c := range cands.Items {
			if c.Op == sel.Op {
				rec.Regret = cands.Items[0].Score - c.Score
				break
			}
		}
	}
	r.rt.RecordStep(rec)
}
