package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/labelguard/compliance-cli/internal/model"
)

var expiryMarkers = []string{"exp", "expiry", "expires", "use by", "use before", "best before"}
var mfgMarkers = []string{"mfd", "mfg", "manufactured", "mfd on", "pkd", "packed on", "date of manufacture"}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// DateMatch is a raw date reading whose day/month order may still be open.
// Matches from every producer of a listing are settled together, so an
// unambiguous date on one label panel fixes the order of an ambiguous one
// printed elsewhere.
type DateMatch struct {
	l         line
	src       model.CandidateSource
	field     model.FieldType
	a, b, y   int // first slot, second slot, year; a/b order TBD
	ambiguous bool
	monthName bool // b is already a certain month (named month or mm/yyyy)
}

// collectDates matches common date layouts (dd/mm/yyyy, mm/yyyy,
// "12 Jan 2025", "Jan 2025") near manufacture/expiry markers, leaving
// day/month order open.
func collectDates(lines []line, src model.CandidateSource) []DateMatch {
	var matches []DateMatch
	for _, l := range lines {
		field, ok := dateField(l.norm)
		if !ok {
			continue
		}
		matches = append(matches, scanDates(l, field, src)...)
	}
	return matches
}

// ResolveDates settles day/month order across all matches of a listing and
// converts the readings into candidates. Ambiguous readings follow the order
// of any unambiguous numeric date in the set; with no evidence anywhere they
// keep day-first at reduced confidence.
func ResolveDates(matches []DateMatch) []model.FieldCandidate {
	if len(matches) == 0 {
		return nil
	}

	dayFirst, evidence := true, false
	for _, m := range matches {
		if m.ambiguous || m.monthName {
			continue
		}
		dayFirst = m.a > 12
		evidence = true
		break
	}

	var out []model.FieldCandidate
	for _, m := range matches {
		day, month := m.a, m.b
		conf := m.l.src.Confidence
		switch {
		case m.monthName:
			// month already certain, day (possibly 0) in a
		case m.ambiguous:
			if !dayFirst {
				day, month = m.b, m.a
			}
			if !evidence {
				conf *= 0.6
			}
		case m.a > 12:
			// day-first by necessity
		default:
			day, month = m.b, m.a
		}

		if month < 1 || month > 12 || day < 0 || day > 31 {
			continue
		}
		if day == 0 {
			day = 1
		}
		d := time.Date(m.y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		out = append(out, model.FieldCandidate{
			Field:      m.field,
			Value:      model.FieldValue{Kind: model.KindDate, Date: &d},
			Confidence: conf,
			Provenance: provenance(m.l, m.src),
		})
	}
	return out
}

// dateField classifies a line as a manufacture or expiry declaration.
// Lines without a marker produce no date candidates.
func dateField(norm string) (model.FieldType, bool) {
	for _, m := range expiryMarkers {
		if strings.Contains(norm, m) {
			return model.FieldExpiryDate, true
		}
	}
	for _, m := range mfgMarkers {
		if strings.Contains(norm, m) {
			return model.FieldMfgDate, true
		}
	}
	return "", false
}

// scanDates pulls numeric and month-name date layouts out of one line.
func scanDates(l line, field model.FieldType, src model.CandidateSource) []DateMatch {
	var out []DateMatch
	words := strings.Fields(l.norm)

	for i, w := range words {
		// Numeric layouts: dd/mm/yyyy, mm/yyyy, dd-mm-yy.
		if parts := splitDate(w); parts != nil {
			switch len(parts) {
			case 3:
				if y := fixYear(parts[0]); parts[0] > 1900 && y > 0 {
					// yyyy-mm-dd
					out = append(out, DateMatch{l: l, src: src, field: field, a: parts[2], b: parts[1], y: y, monthName: true})
					continue
				}
				y := fixYear(parts[2])
				if y > 0 {
					out = append(out, DateMatch{
						l: l, src: src, field: field,
						a: parts[0], b: parts[1], y: y,
						ambiguous: parts[0] <= 12 && parts[1] <= 12,
					})
				}
			case 2:
				// mm/yyyy: only valid when the second part reads as a year.
				if y := fixYear(parts[1]); y > 0 && parts[0] >= 1 && parts[0] <= 12 {
					out = append(out, DateMatch{l: l, src: src, field: field, a: 0, b: parts[0], y: y, monthName: true})
				}
			}
			continue
		}

		// Month-name layouts: "jan 2025", "12 jan 2025".
		month, ok := monthNames[trimMonth(w)]
		if !ok || i+1 >= len(words) {
			continue
		}
		y := fixYear(atoi(words[i+1]))
		if y == 0 {
			continue
		}
		day := 0
		if i > 0 {
			if d := atoi(words[i-1]); d >= 1 && d <= 31 {
				day = d
			}
		}
		out = append(out, DateMatch{l: l, src: src, field: field, a: day, b: int(month), y: y, monthName: true})
	}
	return out
}

// splitDate parses "02/03/2025"-style tokens into numeric parts, or nil.
func splitDate(w string) []int {
	sep := ""
	for _, s := range []string{"/", "-", "."} {
		if strings.Contains(w, s) {
			sep = s
			break
		}
	}
	if sep == "" {
		return nil
	}
	fields := strings.Split(w, sep)
	if len(fields) < 2 || len(fields) > 3 {
		return nil
	}
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n := atoi(f)
		if n <= 0 {
			return nil
		}
		parts = append(parts, n)
	}
	return parts
}

// fixYear widens two-digit years and rejects values outside a plausible
// packaged-goods window.
func fixYear(y int) int {
	if y >= 0 && y < 100 {
		y += 2000
	}
	if y < 1990 || y > 2100 {
		return 0
	}
	return y
}

func trimMonth(w string) string {
	w = strings.Trim(w, ".,:")
	if len(w) > 3 {
		w = w[:3]
	}
	return w
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.Trim(s, ".,:"))
	if err != nil {
		return 0
	}
	return n
}
