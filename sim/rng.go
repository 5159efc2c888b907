package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === RunKey ===

// RunKey uniquely identifies a reproducible evaluation. Two evaluations with
// the same RunKey, graph and configuration MUST produce identical results.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemPruner seeds the eigensolver start vectors.
	SubsystemPruner = "pruner"

	// SubsystemStrategy drives the strategy under evaluation.
	SubsystemStrategy = "strategy"

	// SubsystemFallback drives the Random strategy that takes over when an
	// external ranking fails or runs out.
	SubsystemFallback = "fallback"
)

// SubsystemReplay returns the subsystem name for random replay N.
func SubsystemReplay(id int) string {
	return fmt.Sprintf("replay_%d", id)
}

// SubsystemScope prefixes a subsystem with a scope such as a graph name or a
// phase, so independent phases of one evaluation draw from isolated streams.
func SubsystemScope(scope, name string) string {
	return scope + "/" + name
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine; parallel
// runs each build their own PartitionedRNG.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Fresh returns a newly seeded RNG for name without caching it, so every call
// restarts the same stream.
func (p *PartitionedRNG) Fresh(name string) *rand.Rand {
	return rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
