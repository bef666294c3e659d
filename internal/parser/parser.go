// Package parser turns normalized text lines into typed, confidence-scored
// field candidates. Each field type has its own matching rules; a parser
// never raises for malformed input — no match simply yields no candidate.
package parser

import (
	"strings"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/normalize"
)

// Parser scans text lines for field candidates. Safe for concurrent use: all
// state is immutable after construction.
type Parser struct {
	countries *Gazetteer
}

// New creates a Parser over the given country gazetteer.
func New(countries *Gazetteer) *Parser {
	return &Parser{countries: countries}
}

// line pairs a raw text line with its normalized form and tokens, computed
// once and shared by all field parsers.
type line struct {
	src    model.TextLine
	norm   string
	tokens []normalize.Token
}

// Parse scans the given lines and returns candidates for every field type.
// Quantity candidates are collapsed to one per distinct normalized value with
// confidence = max of the contributing lines. Day/month order of ambiguous
// dates is settled from these lines alone; producers whose lines arrive in
// pieces use Scan and settle dates over the whole listing instead.
func (p *Parser) Parse(lines []model.TextLine, src model.CandidateSource) []model.FieldCandidate {
	cands, dates := p.Scan(lines, src)
	return append(cands, ResolveDates(dates)...)
}

// Scan is Parse with date resolution deferred: date readings come back as
// raw matches so the caller can settle day/month order across every region
// and producer of a listing, not just the lines at hand.
func (p *Parser) Scan(lines []model.TextLine, src model.CandidateSource) ([]model.FieldCandidate, []DateMatch) {
	prepared := make([]line, 0, len(lines))
	for _, tl := range lines {
		if strings.TrimSpace(tl.RawText) == "" {
			continue
		}
		prepared = append(prepared, line{
			src:    tl,
			norm:   normalize.Line(tl.RawText),
			tokens: normalize.Tokenize(tl.RawText),
		})
	}

	var out []model.FieldCandidate
	out = append(out, collapseQuantities(parseQuantities(prepared, src))...)
	out = append(out, parsePrices(prepared, src)...)
	out = append(out, p.parseCountries(prepared, src)...)
	out = append(out, parseManufacturers(prepared, src)...)
	return out, collectDates(prepared, src)
}

// SellerTextLines splits free-form seller text into TextLines with full
// confidence — the text is verbatim from the listing, not an OCR guess.
func SellerTextLines(text string) []model.TextLine {
	var lines []model.TextLine
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '•' || r == ';' }) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		lines = append(lines, model.TextLine{RawText: raw, Confidence: 1.0})
	}
	return lines
}

func provenance(l line, src model.CandidateSource) model.Provenance {
	return model.Provenance{
		RegionID: l.src.RegionID,
		Source:   src,
		RawSpan:  l.src.RawText,
	}
}
