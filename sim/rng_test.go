package sim

import (
	"math"
	"testing"
)

// === RunKey Tests ===

func TestRunKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewRunKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewRunKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// GIVEN two PartitionedRNGs with the same key
	rng1 := NewPartitionedRNG(NewRunKey(42))
	rng2 := NewPartitionedRNG(NewRunKey(42))

	// WHEN three values are drawn from the strategy subsystem of each
	for i := 0; i < 3; i++ {
		a := rng1.ForSubsystem(SubsystemStrategy).Float64()
		b := rng2.ForSubsystem(SubsystemStrategy).Float64()
		// THEN the sequences are identical
		if a != b {
			t.Errorf("Value %d: got %v and %v, want identical", i, a, b)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// GIVEN two PartitionedRNGs with the same key
	rngA := NewPartitionedRNG(NewRunKey(42))
	rngB := NewPartitionedRNG(NewRunKey(42))

	// WHEN A draws heavily from the pruner stream
	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemPruner).Float64()
	}

	// THEN A's first strategy value is unaffected
	aFirst := rngA.ForSubsystem(SubsystemStrategy).Float64()
	bFirst := rngB.ForSubsystem(SubsystemStrategy).Float64()
	if aFirst != bFirst {
		t.Errorf("strategy first value = %v, want %v (isolation broken)", aFirst, bFirst)
	}
}

func TestPartitionedRNG_ReplaysAreDistinct(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(7))
	first := rng.ForSubsystem(SubsystemReplay(0)).Int63()
	second := rng.ForSubsystem(SubsystemReplay(1)).Int63()
	if first == second {
		t.Error("replay_0 and replay_1 produced the same first value")
	}
	if SubsystemReplay(3) != "replay_3" {
		t.Errorf("SubsystemReplay(3) = %q", SubsystemReplay(3))
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(42))
	if rng.ForSubsystem(SubsystemPruner) != rng.ForSubsystem(SubsystemPruner) {
		t.Error("ForSubsystem returned different instances for same name")
	}
}

func TestPartitionedRNG_FreshRestartsStream(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(42))
	cached := rng.ForSubsystem(SubsystemFallback)
	cached.Float64()

	a := rng.Fresh(SubsystemFallback).Float64()
	b := rng.Fresh(SubsystemFallback).Float64()
	want := NewPartitionedRNG(NewRunKey(42)).ForSubsystem(SubsystemFallback).Float64()
	if a != b || a != want {
		t.Errorf("Fresh values %v, %v; want both %v", a, b, want)
	}
}

func TestPartitionedRNG_ScopedSubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(1))
	a := rng.Fresh(SubsystemScope("dismantle", SubsystemStrategy)).Int63()
	b := rng.Fresh(SubsystemScope("construct", SubsystemStrategy)).Int63()
	if a == b {
		t.Error("scoped subsystems share a stream")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewRunKey(seed))

	if rng.Key() != RunKey(seed) {
		t.Errorf("Key() = %v, want %v", rng.Key(), seed)
	}
}

func TestPartitionedRNG_ExtremeSeeds(t *testing.T) {
	for _, seed := range []int64{0, math.MinInt64, math.MaxInt64} {
		val := NewPartitionedRNG(NewRunKey(seed)).ForSubsystem(SubsystemPruner).Float64()
		if val < 0 || val >= 1 {
			t.Errorf("seed %d: Float64() returned %v, want [0, 1)", seed, val)
		}
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(42))
	if len(rng.subsystems) != 0 {
		t.Errorf("New PartitionedRNG has %d subsystems, want 0", len(rng.subsystems))
	}
	rng.ForSubsystem(SubsystemStrategy)
	if len(rng.subsystems) != 1 {
		t.Errorf("after one ForSubsystem call, have %d subsystems, want 1", len(rng.subsystems))
	}
}
