package parser

import (
	"strings"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/normalize"
)

// originMarkers precede a country-of-origin declaration; a marker match
// raises confidence over a bare gazetteer hit elsewhere in the text.
var originMarkers = []string{
	"country of origin",
	"origin",
	"made in",
	"product of",
	"imported from",
}

// parseCountries matches token windows against the country gazetteer.
// Windows of up to three tokens handle multi-word names. A hit after an
// origin marker keeps the line confidence; a bare hit is discounted, and a
// fuzzy (edit-distance) hit is discounted further.
func (p *Parser) parseCountries(lines []line, src model.CandidateSource) []model.FieldCandidate {
	var out []model.FieldCandidate
	seen := make(map[string]bool)

	for _, l := range lines {
		marked := hasOriginMarker(l.norm)
		words := wordTexts(l.tokens)

		for width := 3; width >= 1; width-- {
			for i := 0; i+width <= len(words); i++ {
				phrase := strings.Join(words[i:i+width], " ")
				country, exact, ok := p.countries.Match(phrase)
				if !ok || seen[country] {
					continue
				}
				seen[country] = true

				conf := l.src.Confidence
				if !marked {
					conf *= 0.7
				}
				if !exact {
					conf *= 0.8
				}

				out = append(out, model.FieldCandidate{
					Field:      model.FieldCountry,
					Value:      model.FieldValue{Kind: model.KindText, Text: country},
					Confidence: conf,
					Provenance: provenance(l, src),
				})
			}
		}
	}
	return out
}

func hasOriginMarker(norm string) bool {
	for _, m := range originMarkers {
		if strings.Contains(norm, m) {
			return true
		}
	}
	return false
}

func wordTexts(tokens []normalize.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Tag == normalize.TagWord && t.Text != "" {
			out = append(out, t.Text)
		}
	}
	return out
}
