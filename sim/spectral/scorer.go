package spectral

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ScorerConfig describes a named node scorer with a weight.
type ScorerConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// nodeScorer computes raw per-row scores from the Laplacian and its Fiedler vector.
type nodeScorer func(l *Laplacian, v []float64) []float64

// validScorerNames maps scorer names to validity. Unexported to prevent mutation.
var validScorerNames = map[string]bool{
	"fiedler-degree":   true,
	"fiedler-gradient": true,
	"degree":           true,
}

// IsValidScorer returns true if name is a recognized scorer.
func IsValidScorer(name string) bool { return validScorerNames[name] }

// ValidScorerNames returns sorted valid scorer names.
func ValidScorerNames() []string {
	names := make([]string, 0, len(validScorerNames))
	for n := range validScorerNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultScorerConfigs returns the default node scoring profile:
// fiedler-gradient:0.7, fiedler-degree:0.3.
func DefaultScorerConfigs() []ScorerConfig {
	return []ScorerConfig{
		{Name: "fiedler-gradient", Weight: 0.7},
		{Name: "fiedler-degree", Weight: 0.3},
	}
}

// ParseScorerConfigs parses a comma-separated string of "name:weight" pairs.
// Returns nil for empty input. Returns error for invalid names, non-positive weights,
// NaN, Inf, or malformed input.
func ParseScorerConfigs(s string) ([]ScorerConfig, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	configs := make([]ScorerConfig, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid scorer config %q (expected name:weight)", strings.TrimSpace(part))
		}
		name := strings.TrimSpace(kv[0])
		if !IsValidScorer(name) {
			return nil, fmt.Errorf("unknown scorer %q; valid: %s", name, strings.Join(ValidScorerNames(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate scorer %q; each scorer may appear at most once", name)
		}
		seen[name] = true
		weight, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for scorer %q: %w", name, err)
		}
		if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, fmt.Errorf("scorer %q weight must be a finite positive number, got %v", name, weight)
		}
		configs = append(configs, ScorerConfig{Name: name, Weight: weight})
	}
	return configs, nil
}

// normalizeScorerWeights returns weights normalized to sum to 1.0.
// Panics if total weight is zero (should be prevented by validation).
func normalizeScorerWeights(configs []ScorerConfig) []float64 {
	total := 0.0
	for _, c := range configs {
		total += c.Weight
	}
	if total <= 0 {
		panic(fmt.Sprintf("scorer weights sum to %f; must be positive", total))
	}
	weights := make([]float64, len(configs))
	for i, c := range configs {
		weights[i] = c.Weight / total
	}
	return weights
}

// newScorer returns the scorer for name.
// Panics on unknown name (validation should catch this before reaching here).
func newScorer(name string) nodeScorer {
	switch name {
	case "fiedler-degree":
		return scoreFiedlerDegree
	case "fiedler-gradient":
		return scoreFiedlerGradient
	case "degree":
		return scoreDegree
	default:
		panic(fmt.Sprintf("unknown scorer %q", name))
	}
}

// scoreFiedlerDegree is |v2[i]|^2 * degree(i).
func scoreFiedlerDegree(l *Laplacian, v []float64) []float64 {
	out := make([]float64, l.Dim())
	for i := range out {
		out[i] = v[i] * v[i] * l.Degree(i)
	}
	return out
}

// scoreFiedlerGradient is the sum over incident edges of (v2[i] - v2[j])^2,
// the node's share of the Laplacian quadratic form. It peaks on nodes that
// sit on the spectral cut.
func scoreFiedlerGradient(l *Laplacian, v []float64) []float64 {
	out := make([]float64, l.Dim())
	for i := range out {
		for _, j := range l.Neighbors(i) {
			d := v[i] - v[j]
			out[i] += d * d
		}
	}
	return out
}

func scoreDegree(l *Laplacian, _ []float64) []float64 {
	out := make([]float64, l.Dim())
	for i := range out {
		out[i] = l.Degree(i)
	}
	return out
}

// minMaxNormalize maps xs onto [0,1]. All-equal input maps to all 1.0.
func minMaxNormalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	for i, x := range xs {
		if hi == lo {
			out[i] = 1
		} else {
			out[i] = clamp01((x - lo) / (hi - lo))
		}
	}
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
