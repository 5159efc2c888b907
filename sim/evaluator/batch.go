package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/resilience-sim/resilience-sim/sim/graph"
	"github.com/resilience-sim/resilience-sim/sim/resilience"
)

// BatchOptions controls directory evaluation.
type BatchOptions struct {
	OutputDir string
	Task      string
	Workers   int
	Baselines bool
	Options   []RunOption
}

// BatchFailure names a graph that could not be evaluated.
type BatchFailure struct {
	Graph string `json:"graph"`
	Error string `json:"error"`
}

// StrategyStats summarises r_res for one strategy across a batch.
type StrategyStats struct {
	Graphs   int     `json:"graphs"`
	MeanRRes float64 `json:"mean_r_res"`
	StdRRes  float64 `json:"std_r_res"`
	// MeanRTar is set for construct strategies only.
	MeanRTar *float64 `json:"mean_r_tar,omitempty"`
}

// BatchSummary is written as batch_summary.json.
type BatchSummary struct {
	Directory string                   `json:"directory"`
	Timestamp string                   `json:"timestamp"`
	Total     int                      `json:"total"`
	Succeeded []string                 `json:"succeeded"`
	Failed    []BatchFailure           `json:"failed"`
	Dismant   map[string]StrategyStats `json:"dismant,omitempty"`
	Construct map[string]StrategyStats `json:"construct,omitempty"`
	records   map[string]*Record
}

// Records returns the per-graph records keyed by graph name.
func (b *BatchSummary) Records() map[string]*Record { return b.records }

// ListGraphFiles returns the graph files directly inside dir, sorted by name.
func ListGraphFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading graph directory %s", dir)
	}
	var out []string
	for _, ent := range entries {
		if !ent.IsDir() && graph.IsGraphFile(ent.Name()) {
			out = append(out, filepath.Join(dir, ent.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// EvaluateDir evaluates every graph file in dir with at most opts.Workers
// graphs in flight. Each graph writes <name>_results.json to opts.OutputDir;
// the summary goes to batch_summary.json. A graph that fails is logged and
// listed in the summary without stopping the batch. Only directory and
// summary I/O errors and context cancellation are returned.
func (e *Evaluator) EvaluateDir(ctx context.Context, dir string, opts BatchOptions) (*BatchSummary, error) {
	files, err := ListGraphFiles(dir)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	summary := &BatchSummary{
		Directory: dir,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Total:     len(files),
		Succeeded: []string{},
		Failed:    []BatchFailure{},
		records:   make(map[string]*Record),
	}
	logrus.Infof("batch: %d graph files in %s, %d workers", len(files), dir, workers)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, path := range files {
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			name := stem(path)
			rec, err := e.evaluateFile(egCtx, path, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logrus.Warnf("batch: %s failed: %v", name, err)
				e.metrics.RecordGraphFailure()
				summary.Failed = append(summary.Failed, BatchFailure{Graph: name, Error: err.Error()})
				return nil
			}
			summary.Succeeded = append(summary.Succeeded, name)
			summary.records[name] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(summary.Succeeded)
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i].Graph < summary.Failed[j].Graph })
	summary.aggregate()
	if opts.OutputDir != "" {
		if err := WriteJSON(filepath.Join(opts.OutputDir, "batch_summary.json"), summary); err != nil {
			return nil, err
		}
	}
	logrus.Infof("batch: %d succeeded, %d failed", len(summary.Succeeded), len(summary.Failed))
	return summary, nil
}

func (e *Evaluator) evaluateFile(ctx context.Context, path string, opts BatchOptions) (*Record, error) {
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := e.Evaluate(ctx, g, Request{Path: path, Task: opts.Task, Baselines: opts.Baselines, Options: opts.Options})
	if err != nil {
		return nil, errors.Wrapf(err, "evaluating %s", path)
	}
	if opts.OutputDir != "" {
		if err := WriteJSON(filepath.Join(opts.OutputDir, stem(path)+"_results.json"), rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// aggregate fills per-strategy statistics over the succeeded graphs.
func (b *BatchSummary) aggregate() {
	dismant := make(map[string][]*Result)
	construct := make(map[string][]*Result)
	for _, name := range b.Succeeded {
		rec := b.records[name]
		for strat, res := range rec.Dismant {
			dismant[strat] = append(dismant[strat], res)
		}
		for strat, res := range rec.Construct {
			construct[strat] = append(construct[strat], res)
		}
	}
	b.Dismant = strategyStats(dismant)
	b.Construct = strategyStats(construct)
}

func strategyStats(byStrategy map[string][]*Result) map[string]StrategyStats {
	if len(byStrategy) == 0 {
		return nil
	}
	out := make(map[string]StrategyStats, len(byStrategy))
	for strat, results := range byStrategy {
		rres := make([]float64, len(results))
		var rtar []float64
		for i, r := range results {
			rres[i] = r.RRes
			if r.ConstructMetrics != nil {
				rtar = append(rtar, r.RTar)
			}
		}
		st := StrategyStats{Graphs: len(results)}
		st.MeanRRes, st.StdRRes = resilience.MeanStd(rres)
		if len(rtar) > 0 {
			mean, _ := resilience.MeanStd(rtar)
			st.MeanRTar = &mean
		}
		out[strat] = st
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
