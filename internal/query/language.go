package query

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Language is the coarse source-language classification query expansion
// cares about: whether to translate into or out of CJK.
type Language string

const (
	LangEnglish Language = "en"
	LangCJK     Language = "cjk"
	LangUnknown Language = "unknown"
)

// shortTextThreshold is the rune count below which frequency-based
// detection is too noisy to trust, per spec's "text shorter than 3
// characters" fallback rule.
const shortTextThreshold = 3

// DetectLanguage classifies text and reports a confidence in [0,1]. Below
// shortTextThreshold runes it falls back to a plain "does this contain a
// CJK character" heuristic; otherwise it scores the fraction of CJK runes
// in the (NFC-normalized) text.
func DetectLanguage(text string) (Language, float64) {
	normalized := norm.NFC.String(text)
	runes := []rune(normalized)

	if len(runes) < shortTextThreshold {
		if containsCJK(normalized) {
			return LangCJK, 1.0
		}
		return LangEnglish, 0.5
	}

	var cjkCount, letterCount int
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		letterCount++
		if isCJKRune(r) {
			cjkCount++
		}
	}
	if letterCount == 0 {
		return LangUnknown, 0
	}

	fraction := float64(cjkCount) / float64(letterCount)
	if fraction > 0.3 {
		return LangCJK, fraction
	}
	return LangEnglish, 1 - fraction
}

// containsCJK reports whether text has at least one CJK-script rune.
func containsCJK(text string) bool {
	for _, r := range text {
		if isCJKRune(r) {
			return true
		}
	}
	return false
}

func isCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// segmentCJK splits CJK text into word-sized tokens for dictionary
// lookup. There is no word-level CJK segmenter in the example corpus (the
// only x/text subpackage any pack repo imports is unicode/norm), so this
// treats each CJK ideograph/syllable as its own token — a coarser but
// dependency-honest stand-in for true word segmentation — and keeps
// contiguous runs of non-CJK letters/digits together as ordinary words.
func segmentCJK(text string) []string {
	var tokens []string
	var buf []rune

	flush := func() {
		if len(buf) > 0 {
			tokens = append(tokens, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range norm.NFC.String(text) {
		switch {
		case isCJKRune(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			flush()
		default:
			buf = append(buf, r)
		}
	}
	flush()
	return tokens
}
