package query

import (
	"strings"
	"unicode"
)

// ParsedQuery is the result of tokenizing one raw search string.
type ParsedQuery struct {
	PositiveText    string
	NegativeTerms   []string
	HasQuotedPhrase bool
	Raw             string
}

// token is one scanned unit: either a bareword or a "quoted phrase",
// tracked separately so quoting can both exempt a token from the
// negative-prefix rule and signal exact-match intent upstream.
type token struct {
	text   string
	quoted bool
}

// QueryParser tokenizes a raw query string into positive and negative
// terms, preserving quoted phrases as single units.
type QueryParser struct{}

// Parse tokenizes text, treating `-term` (bare, unquoted, length > 1) and
// a literal `NOT term` as negative terms. Remaining tokens are rejoined
// with a single space as PositiveText.
func (QueryParser) Parse(text string) ParsedQuery {
	tokens := tokenize(text)

	var positive []string
	var negative []string
	hasQuoted := false

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.quoted {
			hasQuoted = true
		}

		if !t.quoted && strings.EqualFold(t.text, "NOT") && i+1 < len(tokens) {
			next := tokens[i+1]
			if next.quoted {
				hasQuoted = true
			}
			negative = append(negative, strings.TrimPrefix(next.text, "-"))
			i++
			continue
		}

		if !t.quoted && len(t.text) > 1 && t.text[0] == '-' {
			negative = append(negative, t.text[1:])
			continue
		}

		positive = append(positive, t.text)
	}

	return ParsedQuery{
		PositiveText:    strings.Join(positive, " "),
		NegativeTerms:   negative,
		HasQuotedPhrase: hasQuoted,
		Raw:             text,
	}
}

// tokenize splits text on whitespace, but treats a "double-quoted run" as
// a single token (quotes included, so phrase queries survive into the FTS
// projection verbatim).
func tokenize(text string) []token {
	var tokens []token
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			break
		}
		if runes[i] == '"' {
			start := i
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}
			if i < len(runes) {
				i++ // consume closing quote
			}
			tokens = append(tokens, token{text: string(runes[start:i]), quoted: true})
			continue
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		tokens = append(tokens, token{text: string(runes[start:i])})
	}
	return tokens
}

// FTSProjection builds the FTS5 MATCH expression for a parsed query:
// the positive text, followed by a `NOT term` clause per negative term.
func (p ParsedQuery) FTSProjection() string {
	var b strings.Builder
	b.WriteString(p.PositiveText)
	for _, term := range p.NegativeTerms {
		if term == "" {
			continue
		}
		b.WriteString(" NOT ")
		b.WriteString(term)
	}
	return b.String()
}
