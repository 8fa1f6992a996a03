package transcribe

import "fmt"

// Strategy identifies which decision path produced an Outcome.
type Strategy int

const (
	StrategyAutoConfidentDefault Strategy = iota
	StrategyDefaultPreferred
	StrategySecondaryPreferred
	StrategyDetectFirstFallback
	StrategyPipelineFallback
)

var strategyNames = []string{
	StrategyAutoConfidentDefault: "auto_confident_default",
	StrategyDefaultPreferred:     "default_preferred",
	StrategySecondaryPreferred:   "secondary_preferred",
	StrategyDetectFirstFallback:  "detect_first_fallback",
	StrategyPipelineFallback:     "pipeline_fallback",
}

func (s Strategy) String() string { return enumName(strategyNames, int(s), "strategy") }

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return enumMarshal(strategyNames, int(s), "strategy") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(data []byte) error {
	v, err := enumParse(strategyNames, string(data), "strategy")
	if err == nil {
		*s = Strategy(v)
	}
	return err
}

// FaultKind classifies why an outcome is degraded. FaultNone means the run
// completed on real engine output.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultEngineUnavailable
	FaultAmbiguousLanguage
	FaultPipelineTimeout
	FaultTotalFailure
	FaultInternalPanic
)

var faultNames = []string{
	FaultNone:              "none",
	FaultEngineUnavailable: "engine_unavailable",
	FaultAmbiguousLanguage: "ambiguous_language",
	FaultPipelineTimeout:   "pipeline_timeout",
	FaultTotalFailure:      "total_failure",
	FaultInternalPanic:     "internal_panic",
}

func (f FaultKind) String() string { return enumName(faultNames, int(f), "fault") }

// Failed reports whether the run ended on the fallback outcome instead of a
// transcript.
func (f FaultKind) Failed() bool {
	switch f {
	case FaultPipelineTimeout, FaultTotalFailure, FaultInternalPanic:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f FaultKind) MarshalText() ([]byte, error) { return enumMarshal(faultNames, int(f), "fault") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FaultKind) UnmarshalText(data []byte) error {
	v, err := enumParse(faultNames, string(data), "fault")
	if err == nil {
		*f = FaultKind(v)
	}
	return err
}

// PassKind names one engine configuration.
type PassKind int

const (
	PassNeutral PassKind = iota
	PassHinted
)

var passNames = []string{
	PassNeutral: "neutral",
	PassHinted:  "hinted",
}

func (p PassKind) String() string { return enumName(passNames, int(p), "pass") }

// MarshalText implements encoding.TextMarshaler.
func (p PassKind) MarshalText() ([]byte, error) { return enumMarshal(passNames, int(p), "pass") }

// State is a node of the pass orchestration state machine.
type State int

const (
	StateStart State = iota
	StateNeutralDone
	StateShortCircuited
	StateSecondPassDone
	StateSelected
)

var stateNames = []string{
	StateStart:          "start",
	StateNeutralDone:    "neutral_done",
	StateShortCircuited: "short_circuited",
	StateSecondPassDone: "second_pass_done",
	StateSelected:       "selected",
}

func (s State) String() string { return enumName(stateNames, int(s), "state") }

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return enumMarshal(stateNames, int(s), "state") }

func enumName(names []string, v int, kind string) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, v)
	}
	return names[v]
}

func enumMarshal(names []string, v int, kind string) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("invalid %s %d", kind, v)
	}
	return []byte(names[v]), nil
}

func enumParse(names []string, value, kind string) (int, error) {
	for i, name := range names {
		if name == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, value)
}
