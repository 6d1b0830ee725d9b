package query

import "context"

// ExpandedQuery is a ParsedQuery plus the language-detection and
// (optional) translation decisions QueryPipeline.Expand made for it.
type ExpandedQuery struct {
	Parsed     ParsedQuery
	Language   Language
	Confidence float64
	Direction  Direction
	// Translated is empty when no translation direction applies, or when
	// the translation came back equal to the input (discarded per spec).
	Translated string
}

// QueryPipeline decides whether and how to translate a parsed query
// before running it against the FTS/embedding/CLIP channels.
type QueryPipeline struct {
	Dictionary *DictionaryTranslator
	Neural     Translator // optional; nil disables the async neural path
}

func pickDirection(lang Language) Direction {
	switch lang {
	case LangCJK:
		return DirCJKToEnglish
	case LangEnglish:
		return DirEnglishToCJK
	default:
		return DirNone
	}
}

// Expand runs the cheap synchronous path: language detection plus a
// dictionary word-by-word translation. Quoted queries (exact-match
// intent) skip translation entirely.
func (p QueryPipeline) Expand(parsed ParsedQuery) ExpandedQuery {
	exp := p.classify(parsed)
	if exp.Direction == DirNone || p.Dictionary == nil {
		return exp
	}
	if t, _ := p.Dictionary.Translate(context.Background(), parsed.PositiveText, exp.Direction); t != parsed.PositiveText {
		exp.Translated = t
	}
	return exp
}

// ExpandAsync runs the full path used once the caller is willing to wait
// out a debounce for the hybrid vector search: it tries the neural
// translator first (if configured and available), falling back to the
// dictionary on error, unavailability, or a no-op translation.
func (p QueryPipeline) ExpandAsync(ctx context.Context, parsed ParsedQuery) ExpandedQuery {
	exp := p.classify(parsed)
	if exp.Direction == DirNone {
		return exp
	}

	if p.Neural != nil && p.Neural.IsAvailable() {
		if t, err := p.Neural.Translate(ctx, parsed.PositiveText, exp.Direction); err == nil && t != "" && t != parsed.PositiveText {
			exp.Translated = t
			return exp
		}
	}
	if p.Dictionary != nil {
		if t, _ := p.Dictionary.Translate(ctx, parsed.PositiveText, exp.Direction); t != parsed.PositiveText {
			exp.Translated = t
		}
	}
	return exp
}

func (p QueryPipeline) classify(parsed ParsedQuery) ExpandedQuery {
	lang, confidence := DetectLanguage(parsed.PositiveText)
	direction := DirNone
	if !parsed.HasQuotedPhrase {
		direction = pickDirection(lang)
	}
	return ExpandedQuery{Parsed: parsed, Language: lang, Confidence: confidence, Direction: direction}
}
