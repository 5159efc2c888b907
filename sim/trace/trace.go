package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every step decision and pruning outcome.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level           TraceLevel `yaml:"level"`
	CounterfactualK int        `yaml:"top_k" validate:"gte=0"` // number of counterfactual candidates per step
}

// Enabled reports whether decisions are recorded.
func (c TraceConfig) Enabled() bool { return c.Level == TraceLevelDecisions }

// RunTrace collects decision records during one evaluation run.
// Fallbacks are always recorded; steps and prunings only when the level is decisions.
type RunTrace struct {
	Config    TraceConfig      `json:"-"`
	Steps     []StepRecord     `json:"steps,omitempty"`
	Prunings  []PruningRecord  `json:"prunings,omitempty"`
	Fallbacks []FallbackRecord `json:"fallbacks,omitempty"`
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig) *RunTrace {
	return &RunTrace{
		Config:    config,
		Steps:     make([]StepRecord, 0),
		Prunings:  make([]PruningRecord, 0),
		Fallbacks: make([]FallbackRecord, 0),
	}
}

// RecordStep appends a step decision record.
func (rt *RunTrace) RecordStep(record StepRecord) {
	if rt.Config.Enabled() {
		rt.Steps = append(rt.Steps, record)
	}
}

// RecordPruning appends a pruning record.
func (rt *RunTrace) RecordPruning(record PruningRecord) {
	if rt.Config.Enabled() {
		rt.Prunings = append(rt.Prunings, record)
	}
}

// RecordFallback appends a fallback record regardless of level.
func (rt *RunTrace) RecordFallback(record FallbackRecord) {
	rt.Fallbacks = append(rt.Fallbacks, record)
}
