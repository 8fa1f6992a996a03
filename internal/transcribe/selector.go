package transcribe

import (
	"polyscribe/internal/script"
)

const (
	// ShortCircuitConfidence is the neutral-pass Latin confidence above which
	// the hinted pass is skipped, provided no Han character appears at all.
	ShortCircuitConfidence = 0.7
	// AmbiguousConfidence is the floor below which a profile says nothing useful.
	AmbiguousConfidence = 0.3
)

// Candidate is one pass that ran, with its script profile.
type Candidate struct {
	Pass    PassKind
	Result  Result
	Profile script.Profile
	OK      bool
}

// NewCandidate classifies result and wraps it for selection.
func NewCandidate(kind PassKind, result Result, ok bool) Candidate {
	return Candidate{
		Pass:    kind,
		Result:  result,
		Profile: script.Classify(result.Text),
		OK:      ok,
	}
}

// ShortCircuits reports whether the neutral candidate is confidently Latin
// with no Han characters. The character check is stricter than the ratio test.
func ShortCircuits(neutral Candidate) bool {
	return neutral.Profile.Primary == script.Latin &&
		neutral.Profile.Confidence > ShortCircuitConfidence &&
		!script.ContainsHan(neutral.Result.Text)
}

func ambiguous(p script.Profile) bool {
	return p.Primary == script.Unknown || p.Confidence < AmbiguousConfidence
}

// Select picks between the neutral and hinted candidates. A nil hinted means
// the run short-circuited and the neutral candidate wins unconditionally.
// Select is pure: the same inputs always produce the same Outcome.
func Select(neutral Candidate, hinted *Candidate, defaultLanguage string) Outcome {
	if hinted == nil || ShortCircuits(neutral) {
		return buildOutcome(neutral, StrategyAutoConfidentDefault, defaultLanguage)
	}
	chosen, strategy := neutral, StrategyDefaultPreferred
	if hinted.Profile.Confidence > neutral.Profile.Confidence {
		chosen, strategy = *hinted, StrategySecondaryPreferred
	}
	if ambiguous(neutral.Profile) && ambiguous(hinted.Profile) {
		strategy = StrategyDetectFirstFallback
	}
	return buildOutcome(chosen, strategy, defaultLanguage)
}

func buildOutcome(chosen Candidate, strategy Strategy, defaultLanguage string) Outcome {
	profile := chosen.Profile
	rendering := defaultLanguage
	if strategy != StrategyDetectFirstFallback && profile.Primary != script.Unknown {
		rendering = profile.Primary.Language()
	}
	segments := chosen.Result.Segments
	if segments == nil {
		segments = []Segment{}
	}
	return Outcome{
		Text:              chosen.Result.Text,
		DetectedLanguages: profile.Languages(),
		PrimaryLanguage:   profile.Primary.Language(),
		RenderingLanguage: rendering,
		Confidence:        map[string]float64{strategy.String(): profile.Confidence},
		Strategy:          strategy,
		MixedLanguage:     profile.Mixed(),
		ScriptAnalysis:    analysisOf(profile),
		DurationSeconds:   chosen.Result.DurationSeconds,
		Segments:          segments,
	}
}
