package transcribe

import (
	"polyscribe/internal/language"
	"polyscribe/internal/script"
	"polyscribe/internal/services/whisper"
)

// Segment is one timed span of a transcript.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// Result is the output of a single engine pass. It is not modified after the
// pass returns it.
type Result struct {
	Text            string
	Language        string
	DurationSeconds float64
	Segments        []Segment
}

// EmptyResult is what a failed pass contributes.
func EmptyResult() Result {
	return Result{Language: language.Unknown, Segments: []Segment{}}
}

func resultFromEngine(t whisper.Transcription) Result {
	segments := make([]Segment, 0, len(t.Segments))
	for _, seg := range t.Segments {
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	duration := t.Duration
	if duration < 0 {
		duration = 0
	}
	return Result{
		Text:            t.Text,
		Language:        language.Canonical(t.Language),
		DurationSeconds: duration,
		Segments:        segments,
	}
}

// Alternative is one script ratio observed in the chosen transcript.
type Alternative struct {
	Lang       string  `json:"lang" yaml:"lang"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ScriptAnalysis mirrors the chosen pass's script profile.
type ScriptAnalysis struct {
	Detected     string        `json:"detected" yaml:"detected"`
	Confidence   float64       `json:"confidence" yaml:"confidence"`
	Alternatives []Alternative `json:"alternatives" yaml:"alternatives"`
}

// Outcome is the single product of a pipeline run.
type Outcome struct {
	Text              string             `json:"text" yaml:"text"`
	DetectedLanguages []string           `json:"detectedLanguages" yaml:"detectedLanguages"`
	PrimaryLanguage   string             `json:"primaryLanguage" yaml:"primaryLanguage"`
	RenderingLanguage string             `json:"renderingLanguage" yaml:"renderingLanguage"`
	Confidence        map[string]float64 `json:"confidence" yaml:"confidence"`
	Strategy          Strategy           `json:"strategy" yaml:"strategy"`
	MixedLanguage     bool               `json:"mixedLanguage" yaml:"mixedLanguage"`
	ScriptAnalysis    ScriptAnalysis     `json:"francAnalysis" yaml:"francAnalysis"`

	// Carried alongside the outcome from the chosen pass.
	DurationSeconds float64   `json:"-" yaml:"-"`
	Segments        []Segment `json:"-" yaml:"-"`
}

// FallbackOutcome is returned when no pass produced usable output.
func FallbackOutcome(defaultLanguage string) Outcome {
	return Outcome{
		Text:              "",
		DetectedLanguages: []string{},
		PrimaryLanguage:   language.Unknown,
		RenderingLanguage: defaultLanguage,
		Confidence:        map[string]float64{StrategyPipelineFallback.String(): script.UnknownConfidence},
		Strategy:          StrategyPipelineFallback,
		ScriptAnalysis:    ScriptAnalysis{Detected: language.Unknown, Alternatives: []Alternative{}},
		Segments:          []Segment{},
	}
}

func analysisOf(p script.Profile) ScriptAnalysis {
	alternatives := make([]Alternative, 0, 2)
	for _, s := range []script.Script{script.Han, script.Latin} {
		if ratio := p.Ratio(s); ratio > 0 {
			alternatives = append(alternatives, Alternative{Lang: s.Language(), Confidence: ratio})
		}
	}
	return ScriptAnalysis{
		Detected:     p.Primary.Language(),
		Confidence:   p.Confidence,
		Alternatives: alternatives,
	}
}
