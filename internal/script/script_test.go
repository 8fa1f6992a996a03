package script

import (
	"reflect"
	"testing"
)

func TestClassifyShortText(t *testing.T) {
	for _, input := range []string{"", "a", "hi", "中文", "abcd"} {
		t.Run(input, func(t *testing.T) {
			got := Classify(input)
			if got.Primary != Unknown {
				t.Fatalf("Classify(%q).Primary = %v, want unknown", input, got.Primary)
			}
			if got.Confidence != 0 {
				t.Fatalf("Classify(%q).Confidence = %v, want 0", input, got.Confidence)
			}
			if len(got.Present) != 0 || len(got.Ratios) != 0 {
				t.Fatalf("Classify(%q) expected empty present/ratios, got %+v", input, got)
			}
		})
	}
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		primary    Script
		present    []Script
		confidence float64
	}{
		{"latin", "hello world how are you today", Latin, []Script{Latin}, 0.9},
		{"han", "这是中文内容", Han, []Script{Han}, 0.9},
		{"mixed latin primary", "I like 苹果 today", Latin, []Script{Latin, Han}, 0.9},
		{"mixed han primary", "我喜欢吃苹果 ok", Han, []Script{Han, Latin}, 0.9},
		{"digits only", "1234567890", Unknown, []Script{}, 0.3},
		{"whitespace only", "        ", Unknown, []Script{}, 0.3},
		{"fullwidth latin is not ascii", "ｈｅｌｌｏ ｗｏｒｌｄ", Unknown, []Script{}, 0.3},
		{"accented latin counts base letters only", "café résumé", Latin, []Script{Latin}, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got.Primary != tt.primary {
				t.Fatalf("primary = %v, want %v", got.Primary, tt.primary)
			}
			if !reflect.DeepEqual(got.Present, tt.present) {
				t.Fatalf("present = %v, want %v", got.Present, tt.present)
			}
			if got.Confidence != tt.confidence {
				t.Fatalf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func TestClassifyLowRatioScaling(t *testing.T) {
	// 1 Han ideograph among 15 non-space characters: ratio 1/15 > 0.05.
	got := Classify("12345678901234中")
	if got.Primary != Han {
		t.Fatalf("primary = %v, want han", got.Primary)
	}
	want := 2.0 / 15.0
	if got.Confidence != want {
		t.Fatalf("confidence = %v, want %v", got.Confidence, want)
	}
}

func TestClassifyRecordsBothRatios(t *testing.T) {
	got := Classify("这是中文内容")
	if _, ok := got.Ratios[Latin]; !ok {
		t.Fatal("expected latin ratio to be recorded")
	}
	if got.Ratio(Han) != 1 {
		t.Fatalf("han ratio = %v, want 1", got.Ratio(Han))
	}
	if got.Ratio(Latin) != 0 {
		t.Fatalf("latin ratio = %v, want 0", got.Ratio(Latin))
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{"", "hello world how are you today", "I like 苹果 today", "混合 mixed 内容 text"}
	for _, input := range inputs {
		first := Classify(input)
		second := Classify(input)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("Classify(%q) not deterministic: %+v vs %+v", input, first, second)
		}
	}
}

func TestClassifyBoundsInvariant(t *testing.T) {
	inputs := []string{"abc def ghi", "中文 abc 中文 abc", "!!!!!!!!", "a 中 b 文 c 字"}
	for _, input := range inputs {
		got := Classify(input)
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("Classify(%q).Confidence out of range: %v", input, got.Confidence)
		}
		for s, r := range got.Ratios {
			if r < 0 || r > 1 {
				t.Fatalf("Classify(%q) ratio %v out of range: %v", input, s, r)
			}
		}
	}
}

func TestContainsHan(t *testing.T) {
	if ContainsHan("plain english") {
		t.Fatal("expected no han in plain english")
	}
	if !ContainsHan("english with 一 character") {
		t.Fatal("expected han to be detected")
	}
	if Count("I like 苹果 today", Han) != 2 {
		t.Fatalf("unexpected han count")
	}
}

func TestParseAndText(t *testing.T) {
	for _, s := range []Script{Unknown, Latin, Han} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var back Script
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != s {
			t.Fatalf("round trip %v -> %v", s, back)
		}
	}
	if _, err := Parse("cyrillic"); err == nil {
		t.Fatal("expected error for untracked script")
	}
	if s, _ := Parse("zh"); s != Han {
		t.Fatalf("Parse(zh) = %v, want han", s)
	}
}

func TestLatinMatchesASCIILettersOnly(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'a', true},
		{'Z', true},
		{'ａ', false},
		{'Ｚ', false},
		{'é', false},
		{'1', false},
		{'中', false},
	}
	for _, tt := range tests {
		if got := Latin.Matches(tt.r); got != tt.want {
			t.Errorf("Latin.Matches(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
