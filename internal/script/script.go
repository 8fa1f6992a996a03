package script

import (
	"fmt"
	"strings"
	"unicode"
)

// Script identifies a tracked writing system.
type Script int

const (
	Unknown Script = iota
	Latin
	Han
)

// Heuristic constants. Changing any of them changes observable strategy tags.
const (
	MinTextLength       = 5
	MixedRatioFloor     = 0.1
	HanRatioFloor       = 0.05
	LatinRatioFloor     = 0.1
	MaxConfidence       = 0.9
	UnknownConfidence   = 0.3
	RatioConfidenceGain = 2.0
)

// String returns the stable identifier used in logs.
func (s Script) String() string {
	switch s {
	case Latin:
		return "latin"
	case Han:
		return "han"
	default:
		return "unknown"
	}
}

// Language returns the language code a script is rendered as.
func (s Script) Language() string {
	switch s {
	case Latin:
		return "en"
	case Han:
		return "zh"
	default:
		return "unknown"
	}
}

// Parse maps a script identifier or its language code back to a Script.
func Parse(value string) (Script, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "latin", "en":
		return Latin, nil
	case "han", "zh":
		return Han, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("script: unknown value %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Script) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Script) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Matches reports whether r belongs to the script. Latin is ASCII letters
// only; fullwidth forms are not folded.
func (s Script) Matches(r rune) bool {
	switch s {
	case Latin:
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	case Han:
		return r >= 0x4E00 && r <= 0x9FFF
	default:
		return false
	}
}

// Count returns the number of codepoints in text that belong to s.
func Count(text string, s Script) int {
	n := 0
	for _, r := range text {
		if s.Matches(r) {
			n++
		}
	}
	return n
}

// ContainsHan reports whether text has at least one Han ideograph.
func ContainsHan(text string) bool {
	return strings.IndexFunc(text, Han.Matches) >= 0
}

// ContainsLatin reports whether text has at least one Latin letter.
func ContainsLatin(text string) bool {
	return strings.IndexFunc(text, Latin.Matches) >= 0
}

func countNonSpace(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
