// Package sim provides the shared configuration and seeded randomness of the
// network resilience simulator.
//
// # Reading Guide
//
// Start with these three files to understand an evaluation:
//   - graph/state.go: GraphState, the mutable graph plus its incrementally
//     tracked largest-component size and the legal-operation rules
//   - evaluator/run.go: the per-run state machine (Initialized, Stepping,
//     Finalized) that prunes, selects, applies and records one step at a time
//   - resilience/trace.go: the LCC trace and the resilience integral reported
//     as r_res
//
// # Architecture
//
// The sim package holds EvalConfig (bundle.go) and PartitionedRNG (rng.go);
// the components live in sub-packages:
//   - sim/graph/: graphs, operations, GraphState, loaders and generators
//   - sim/spectral/: Laplacian, Fiedler solvers, node scorers, SpectralPruner
//   - sim/resilience/: traces, integrals, collapse point, impact labels
//   - sim/strategy/: AttackStrategy implementations and the Ranker collaborator
//   - sim/evaluator/: UnifiedEvaluator, baselines, result records, batch runs
//   - sim/ranking/: ListMLE and the other ranking losses, ranking metrics
//   - sim/trace/: per-step decision records
//   - sim/telemetry/: Prometheus counters and histograms
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - strategy.Strategy: choose the next operation given the state and the
//     pruned candidates
//   - strategy.Ranker: order candidates for an externally ranked strategy
//   - ranking.Loss: score a padded batch of rankings and return its gradient
//
// Every random draw comes from a PartitionedRNG stream derived from the
// configured seed, so the same seed, graph and configuration reproduce a
// result exactly.
package sim
