package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/strategy"
)

// TaskBoth selects both tasks in a Request.
const TaskBoth = "both"

// Request selects what Evaluate runs on one graph.
type Request struct {
	// Path is recorded as graph_path.
	Path string
	// Task is dismantle, construct or both.
	Task string
	// Dismantle and Construct are the strategies under evaluation. A nil
	// strategy runs highest-degree, or only the baselines when Baselines is set.
	Dismantle strategy.Strategy
	Construct strategy.Strategy
	// Baselines adds highest-degree and random results.
	Baselines bool
	Options   []RunOption
}

// Evaluate runs the requested tasks on g and assembles a Record.
func (e *Evaluator) Evaluate(ctx context.Context, g *graph.Graph, req Request) (*Record, error) {
	doDismantle := req.Task == string(graph.Dismantle) || req.Task == TaskBoth
	doConstruct := req.Task == string(graph.Construct) || req.Task == TaskBoth
	if !doDismantle && !doConstruct {
		return nil, fmt.Errorf("unknown task %q", req.Task)
	}
	info, err := e.graphInfo(g)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		GraphName: g.Name(),
		GraphPath: req.Path,
		GraphInfo: info,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if doDismantle {
		if rec.Dismant, err = e.evaluateTask(ctx, g, graph.Dismantle, req.Dismantle, req); err != nil {
			return nil, err
		}
	}
	if doConstruct {
		if rec.Construct, err = e.evaluateTask(ctx, g, graph.Construct, req.Construct, req); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (e *Evaluator) evaluateTask(ctx context.Context, g *graph.Graph, task graph.Task, strat strategy.Strategy, req Request) (map[string]*Result, error) {
	if req.Baselines {
		if task == graph.Dismantle {
			return e.EvaluateDismantleWithBaselines(ctx, g, strat, req.Options...)
		}
		return e.EvaluateConstructWithBaselines(ctx, g, strat, req.Options...)
	}
	if strat == nil {
		strat = strategy.HighestDegree{}
	}
	var res *Result
	var err error
	if task == graph.Dismantle {
		res, err = e.EvaluateDismantle(ctx, g, strat, req.Options...)
	} else {
		res, err = e.EvaluateConstruct(ctx, g, strat, req.Options...)
	}
	if err != nil {
		return nil, err
	}
	return map[string]*Result{strat.Name(): res}, nil
}

// graphInfo describes the component runs operate on.
func (e *Evaluator) graphInfo(g *graph.Graph) (GraphInfo, error) {
	s, err := graph.Load(g, e.cfg.MinNodes)
	if err != nil {
		return GraphInfo{}, err
	}
	return GraphInfo{Nodes: s.Graph().NodeCount(), Edges: s.Graph().EdgeCount()}, nil
}
