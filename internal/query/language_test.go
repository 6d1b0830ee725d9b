package query

import "testing"

func TestDetectLanguageEnglish(t *testing.T) {
	lang, confidence := DetectLanguage("a person walking a dog in the park")
	if lang != LangEnglish {
		t.Fatalf("lang = %v, want %v", lang, LangEnglish)
	}
	if confidence <= 0 {
		t.Fatalf("expected positive confidence, got %v", confidence)
	}
}

func TestDetectLanguageCJK(t *testing.T) {
	lang, confidence := DetectLanguage("公园里有一只狗")
	if lang != LangCJK {
		t.Fatalf("lang = %v, want %v", lang, LangCJK)
	}
	if confidence <= 0 {
		t.Fatalf("expected positive confidence, got %v", confidence)
	}
}

func TestDetectLanguageShortTextFallsBackToContainsCheck(t *testing.T) {
	if lang, _ := DetectLanguage("狗"); lang != LangCJK {
		t.Fatalf("lang = %v, want %v", lang, LangCJK)
	}
	if lang, _ := DetectLanguage("hi"); lang != LangEnglish {
		t.Fatalf("lang = %v, want %v", lang, LangEnglish)
	}
}

func TestDetectLanguageUnknownWhenNoLetters(t *testing.T) {
	lang, confidence := DetectLanguage("1234 5678 !!!!")
	if lang != LangUnknown {
		t.Fatalf("lang = %v, want %v", lang, LangUnknown)
	}
	if confidence != 0 {
		t.Fatalf("confidence = %v, want 0", confidence)
	}
}

func TestSegmentCJKSplitsIdeographsAndKeepsWords(t *testing.T) {
	tokens := segmentCJK("公园 dog 狗")
	want := []string{"公", "园", "dog", "狗"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", tokens, want)
		}
	}
}
