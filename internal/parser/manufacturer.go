package parser

import (
	"regexp"
	"strings"

	"github.com/labelguard/compliance-cli/internal/model"
)

// makerRe captures the text following a canonical maker-marker phrase. No
// marker means no candidate: for manufacturer identity, absence beats a
// low-confidence guess.
var makerRe = regexp.MustCompile(`(?i)\b(?:(?:mfd|mfg|manufactured|packed|pkd|marketed|mktd|imported)\.?\s*by\b[:\s-]*|manufacturer\s*[:\-]\s*)(.+)`)

// trailingFieldRe matches the start of another declaration trailing the
// captured name ("Acme Foods, Country of Origin: India").
var trailingFieldRe = regexp.MustCompile(`(?i)[,.;|]\s*(?:country\s+of\s+origin|origin|made\s+in|net\s+(?:wt|weight|quantity|qty)|mrp|price|mfd|mfg|exp|best\s+before|fssai).*$`)

// parseManufacturers extracts the maker name after marker phrases, preserving
// the original casing from the raw span.
func parseManufacturers(lines []line, src model.CandidateSource) []model.FieldCandidate {
	var out []model.FieldCandidate

	for _, l := range lines {
		m := makerRe.FindStringSubmatch(l.src.RawText)
		if m == nil {
			continue
		}
		name := trailingFieldRe.ReplaceAllString(m[1], "")
		name = strings.Trim(strings.TrimSpace(name), `.,;:|-"'`)
		if name == "" {
			continue
		}

		out = append(out, model.FieldCandidate{
			Field:      model.FieldManufacturer,
			Value:      model.FieldValue{Kind: model.KindText, Text: name},
			Confidence: l.src.Confidence,
			Provenance: provenance(l, src),
		})
	}
	return out
}
