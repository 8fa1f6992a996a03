package api

import (
	"maps"
	"unicode/utf8"

	"polyscribe/internal/history"
	"polyscribe/internal/script"
	"polyscribe/internal/transcribe"
)

// FromOutcome packages an outcome for transport.
func FromOutcome(o transcribe.Outcome, file FileInfo) TranscriptionResponse {
	o = normalizeOutcome(o)
	return TranscriptionResponse{
		Text:             o.Text,
		Language:         o.PrimaryLanguage,
		LanguageRendered: o.RenderingLanguage,
		Duration:         o.DurationSeconds,
		Segments:         append([]transcribe.Segment{}, o.Segments...),
		Enhanced:         true,
		Debug: Debug{
			FileSize:          file.Size,
			FileType:          file.ContentType,
			Strategy:          o.Strategy,
			DetectedLanguages: append([]string{}, o.DetectedLanguages...),
			PrimaryLanguage:   o.PrimaryLanguage,
			RenderingLanguage: o.RenderingLanguage,
			Confidence:        maps.Clone(o.Confidence),
			ScriptAnalysis:    o.ScriptAnalysis,
			TextAnalysis:      analyzeText(o),
		},
		Details: TranscriptionDetails{
			Enhanced:          o,
			Strategy:          o.Strategy,
			ScriptDetected:    o.ScriptAnalysis.Detected,
			RenderingLanguage: o.RenderingLanguage,
		},
	}
}

// Outcome recovers the outcome carried by the response. Duration and segments
// travel at the top level and are restored from there.
func (r TranscriptionResponse) Outcome() transcribe.Outcome {
	o := r.Details.Enhanced
	o.DurationSeconds = r.Duration
	o.Segments = append([]transcribe.Segment{}, r.Segments...)
	return normalizeOutcome(o)
}

func normalizeOutcome(o transcribe.Outcome) transcribe.Outcome {
	if o.DetectedLanguages == nil {
		o.DetectedLanguages = []string{}
	}
	if o.Confidence == nil {
		o.Confidence = map[string]float64{}
	}
	if o.ScriptAnalysis.Alternatives == nil {
		o.ScriptAnalysis.Alternatives = []transcribe.Alternative{}
	}
	if o.Segments == nil {
		o.Segments = []transcribe.Segment{}
	}
	return o
}

func analyzeText(o transcribe.Outcome) TextAnalysis {
	return TextAnalysis{
		Length:       utf8.RuneCountInString(o.Text),
		HasChinese:   script.ContainsHan(o.Text),
		HasEnglish:   script.ContainsLatin(o.Text),
		IsMixed:      o.MixedLanguage,
		ChineseRatio: alternativeRatio(o.ScriptAnalysis, script.Han.Language()),
		EnglishRatio: alternativeRatio(o.ScriptAnalysis, script.Latin.Language()),
	}
}

func alternativeRatio(analysis transcribe.ScriptAnalysis, lang string) float64 {
	for _, alt := range analysis.Alternatives {
		if alt.Lang == lang {
			return alt.Confidence
		}
	}
	return 0
}

// FromRecord converts a history record into its transport form.
func FromRecord(rec history.Record) TranscriptionEntry {
	languages := append([]string{}, rec.Languages...)
	return TranscriptionEntry{
		ID:                rec.ID,
		CreatedAt:         rec.CreatedAt.UTC().Format(dateTimeFormat),
		Source:            rec.Source,
		FileName:          rec.FileName,
		FileSize:          rec.FileSize,
		Strategy:          rec.Strategy.String(),
		PrimaryLanguage:   rec.PrimaryLanguage,
		RenderingLanguage: rec.RenderingLanguage,
		Languages:         languages,
		EngineCalls:       rec.EngineCalls,
		EngineRequests:    rec.EngineRequests,
		Fault:             rec.Fault.String(),
		ElapsedMillis:     rec.Elapsed.Milliseconds(),
		Text:              rec.Outcome.Text,
	}
}

// FromRecords converts a slice of records, preserving order.
func FromRecords(records []history.Record) []TranscriptionEntry {
	out := make([]TranscriptionEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}
