package script

import "unicode/utf8"

// Profile is the script classification of one piece of text.
type Profile struct {
	Primary    Script
	Present    []Script // primary first when more than one
	Confidence float64
	Ratios     map[Script]float64
}

// Has reports whether s is among the present scripts.
func (p Profile) Has(s Script) bool {
	for _, present := range p.Present {
		if present == s {
			return true
		}
	}
	return false
}

// Mixed reports whether more than one script is present.
func (p Profile) Mixed() bool {
	return len(p.Present) > 1
}

// Ratio returns the recorded ratio for s, zero when absent.
func (p Profile) Ratio(s Script) float64 {
	return p.Ratios[s]
}

// Languages returns the rendered language code of every present script in order.
func (p Profile) Languages() []string {
	out := make([]string, 0, len(p.Present))
	for _, s := range p.Present {
		out = append(out, s.Language())
	}
	return out
}

// Classify returns the dominant-script profile of text.
//
// Ratios are computed over non-whitespace codepoints and are recorded for both
// scripts whenever the text is long enough to be classified. Decision order:
// mixed, Han, Latin, unknown; the first match wins.
func Classify(text string) Profile {
	if utf8.RuneCountInString(text) < MinTextLength {
		return Profile{
			Primary: Unknown,
			Present: []Script{},
			Ratios:  map[Script]float64{},
		}
	}

	latin := Count(text, Latin)
	han := Count(text, Han)
	total := countNonSpace(text)

	var latinRatio, hanRatio float64
	if total > 0 {
		latinRatio = float64(latin) / float64(total)
		hanRatio = float64(han) / float64(total)
	}

	profile := Profile{
		Ratios: map[Script]float64{
			Latin: latinRatio,
			Han:   hanRatio,
		},
	}

	switch {
	case latinRatio > MixedRatioFloor && hanRatio > MixedRatioFloor:
		if hanRatio >= latinRatio {
			profile.Primary = Han
			profile.Present = []Script{Han, Latin}
		} else {
			profile.Primary = Latin
			profile.Present = []Script{Latin, Han}
		}
		profile.Confidence = MaxConfidence
	case hanRatio > HanRatioFloor:
		profile.Primary = Han
		profile.Present = []Script{Han}
		profile.Confidence = min(MaxConfidence, hanRatio*RatioConfidenceGain)
	case latinRatio > LatinRatioFloor:
		profile.Primary = Latin
		profile.Present = []Script{Latin}
		profile.Confidence = min(MaxConfidence, latinRatio*RatioConfidenceGain)
	default:
		profile.Primary = Unknown
		profile.Present = []Script{}
		profile.Confidence = UnknownConfidence
	}
	return profile
}
