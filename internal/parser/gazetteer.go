package parser

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Gazetteer is a fixed lookup of country names and adjectival forms, loaded
// once at startup and read-only thereafter. Matching is case-insensitive and
// tolerant of single OCR letter substitutions for names of six characters or
// more.
type Gazetteer struct {
	// canonical country name -> itself; adjectival/alias -> canonical
	aliases map[string]string
	// names eligible for fuzzy matching, by length bucket
	fuzzy []string
}

// minFuzzyLen is the shortest name that may be fuzzy-matched: below this an
// edit distance of 1 collides with real words ("chad"/"char").
const minFuzzyLen = 6

// NewGazetteer builds a gazetteer from canonical name -> aliases. A nil map
// yields the built-in default country set.
func NewGazetteer(entries map[string][]string) *Gazetteer {
	if entries == nil {
		entries = defaultCountries
	}
	g := &Gazetteer{aliases: make(map[string]string)}
	for canonical, aliases := range entries {
		key := strings.ToLower(canonical)
		g.aliases[key] = canonical
		if len(key) >= minFuzzyLen {
			g.fuzzy = append(g.fuzzy, key)
		}
		for _, a := range aliases {
			g.aliases[strings.ToLower(a)] = canonical
		}
	}
	return g
}

// Match looks the phrase up, exact first, then bounded-edit-distance fuzzy.
// Returns the canonical country name, whether the match was exact, and
// whether anything matched at all.
func (g *Gazetteer) Match(phrase string) (country string, exact, ok bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return "", false, false
	}
	if c, found := g.aliases[phrase]; found {
		return c, true, true
	}
	if len(phrase) < minFuzzyLen {
		return "", false, false
	}
	for _, name := range g.fuzzy {
		if levenshtein.Distance(phrase, name, nil) <= 1 {
			return g.aliases[name], false, true
		}
	}
	return "", false, false
}

// defaultCountries covers the markets the default rule set targets, with
// adjectival forms sellers actually write.
var defaultCountries = map[string][]string{
	"India":          {"indian", "bharat"},
	"China":          {"chinese", "prc"},
	"United States":  {"usa", "us", "america", "american", "united states of america"},
	"United Kingdom": {"uk", "britain", "british", "england"},
	"Germany":        {"german", "deutschland"},
	"France":         {"french"},
	"Italy":          {"italian"},
	"Spain":          {"spanish"},
	"Japan":          {"japanese"},
	"South Korea":    {"korea", "korean", "republic of korea"},
	"Vietnam":        {"vietnamese", "viet nam"},
	"Thailand":       {"thai"},
	"Indonesia":      {"indonesian"},
	"Malaysia":       {"malaysian"},
	"Bangladesh":     {"bangladeshi"},
	"Sri Lanka":      {"sri lankan", "ceylon"},
	"Nepal":          {"nepali", "nepalese"},
	"Pakistan":       {"pakistani"},
	"Turkey":         {"turkish", "turkiye"},
	"Australia":      {"australian"},
	"Canada":         {"canadian"},
	"Brazil":         {"brazilian"},
	"Mexico":         {"mexican"},
	"Netherlands":    {"dutch", "holland"},
	"Switzerland":    {"swiss"},
	"Taiwan":         {"taiwanese"},
	"UAE":            {"united arab emirates", "emirates", "dubai"},
}
