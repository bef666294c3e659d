// Package normalize turns raw OCR and seller text into a deterministic
// canonical form: case-folded, control-stripped, whitespace-collapsed, with
// unit synonyms and currency glyphs mapped to a canonical set. The raw input
// is never lost — callers keep the original span for provenance.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tag classifies a normalized token.
type Tag string

const (
	TagUnit       Tag = "unit"
	TagCurrency   Tag = "currency"
	TagDigitGroup Tag = "digit-group"
	TagWord       Tag = "word"
)

// Token is a cleaned text unit with its classification. Transient: tokens are
// consumed by the field parsers and never persisted.
type Token struct {
	Text string
	Tag  Tag
}

// Line normalizes one line of text: Unicode compatibility normalization,
// lower-casing, control-character stripping, whitespace collapse. Pure and
// deterministic.
func Line(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			// Tabs and newlines collapse with the rest of the whitespace.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsControl(r), r == '\u200b', r == '\u200e', r == '\u200f', r == '\ufeff':
			// Zero-width and BiDi marks show up constantly in marketplace text.
			continue
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits a normalized line into tagged tokens. Number/unit pairs
// written together ("250g", "rs199") are split so the parsers see them as
// separate tokens.
func Tokenize(s string) []Token {
	s = Line(s)
	if s == "" {
		return nil
	}

	var tokens []Token
	for _, raw := range strings.FieldsFunc(s, isSeparator) {
		for _, part := range splitAlphaNum(raw) {
			tok := classify(part)
			if tok.Text == "" {
				continue
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Comma is deliberately not a separator here: it doubles as a thousand
// separator ("1,199.50") and is resolved by splitAlphaNum instead.
func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ';', ':', '(', ')', '[', ']', '|', '*':
		return true
	}
	return false
}

// splitAlphaNum splits runs of digits from runs of letters ("250g" -> "250",
// "g") while keeping decimal points and thousand separators inside digit runs.
func splitAlphaNum(s string) []string {
	var parts []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for i, r := range s {
		digit := unicode.IsDigit(r) || ((r == '.' || r == ',') && curDigit && i+1 < len(s) && unicode.IsDigit(rune(s[i+1])))
		if cur.Len() > 0 && digit != curDigit {
			flush()
		}
		cur.WriteRune(r)
		curDigit = digit
	}
	flush()
	return parts
}

func classify(s string) Token {
	if isDigitGroup(s) {
		return Token{Text: strings.ReplaceAll(s, ",", ""), Tag: TagDigitGroup}
	}
	if code, ok := CurrencyCode(s); ok {
		return Token{Text: code, Tag: TagCurrency}
	}
	if u, ok := CanonicalUnit(s); ok {
		return Token{Text: u, Tag: TagUnit}
	}
	return Token{Text: strings.Trim(s, ",.!?'\"/"), Tag: TagWord}
}

func isDigitGroup(s string) bool {
	var sawDigit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			sawDigit = true
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return sawDigit
}
