package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/normalize"
)

// parsePrices finds <currency><number> pairs. Numbers that look like discount
// percentages or review counts are excluded: a value immediately followed by
// "%" or "reviews" is not a price.
func parsePrices(lines []line, src model.CandidateSource) []model.FieldCandidate {
	var out []model.FieldCandidate

	for _, l := range lines {
		for i, tok := range l.tokens {
			if tok.Tag != normalize.TagCurrency || i+1 >= len(l.tokens) {
				continue
			}
			num := l.tokens[i+1]
			if num.Tag != normalize.TagDigitGroup {
				continue
			}
			if rejectedAsNonPrice(l.tokens, i+1) {
				continue
			}
			amount, err := strconv.ParseFloat(num.Text, 64)
			if err != nil || amount <= 0 {
				continue
			}

			conf := l.src.Confidence
			// A bare number next to a currency glyph elsewhere in a long line
			// is weaker evidence than an explicit price marker.
			if !hasPriceMarker(l.tokens, i) && len(l.tokens) > 6 {
				conf *= 0.85
			}

			out = append(out, model.FieldCandidate{
				Field: model.FieldPrice,
				Value: model.FieldValue{
					Kind:  model.KindMoney,
					Money: &model.Money{Currency: tok.Text, Amount: int64(math.Round(amount * 100))},
				},
				Confidence: conf,
				Provenance: provenance(l, src),
			})
		}
	}
	return out
}

// hasPriceMarker reports whether a price marker ("mrp", "price") appears
// shortly before the currency token at idx.
func hasPriceMarker(tokens []normalize.Token, idx int) bool {
	for i := idx - 1; i >= 0 && i >= idx-3; i-- {
		if normalize.IsPriceMarker(tokens[i].Text) {
			return true
		}
	}
	return false
}

// rejectedAsNonPrice reports whether the number at idx reads as a discount
// percentage or a review count rather than a price.
func rejectedAsNonPrice(tokens []normalize.Token, idx int) bool {
	if idx+1 >= len(tokens) {
		return false
	}
	next := strings.TrimSpace(tokens[idx+1].Text)
	switch next {
	case "%", "percent", "off":
		return true
	}
	return strings.HasPrefix(next, "review") || next == "ratings" || next == "rating"
}
