package parser

import (
	"strconv"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/normalize"
)

// parseQuantities finds <number><canonical-unit> token pairs. Values convert
// to base units (kg→g, l→ml) so "0.25kg" and "250g" read as the same value.
func parseQuantities(lines []line, src model.CandidateSource) []model.FieldCandidate {
	var out []model.FieldCandidate

	for _, l := range lines {
		for i := 0; i+1 < len(l.tokens); i++ {
			if l.tokens[i].Tag != normalize.TagDigitGroup || l.tokens[i+1].Tag != normalize.TagUnit {
				continue
			}
			v, err := strconv.ParseFloat(l.tokens[i].Text, 64)
			if err != nil || v <= 0 {
				continue
			}
			value, unit := normalize.ToBase(v, l.tokens[i+1].Text)
			out = append(out, model.FieldCandidate{
				Field: model.FieldNetQuantity,
				Value: model.FieldValue{
					Kind:     model.KindQuantity,
					Quantity: &model.Quantity{Value: value, Unit: unit},
				},
				Confidence: l.src.Confidence,
				Provenance: provenance(l, src),
			})
		}
	}
	return out
}

// collapseQuantities merges candidates with equal normalized values into one,
// keeping the max contributing confidence ("250g" and "Net Wt 250g" on the
// same listing are one reading, not two).
func collapseQuantities(cands []model.FieldCandidate) []model.FieldCandidate {
	byKey := make(map[string]int)
	var out []model.FieldCandidate

	for _, c := range cands {
		key := c.Value.Key()
		if idx, ok := byKey[key]; ok {
			if c.Confidence > out[idx].Confidence {
				out[idx].Confidence = c.Confidence
				out[idx].Provenance = c.Provenance
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, c)
	}
	return out
}
