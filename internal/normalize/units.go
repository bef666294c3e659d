package normalize

import "strings"

// unitSynonyms maps every accepted spelling to its canonical unit. Canonical
// units are g, kg, mg, ml, l, pc, pack, m, cm.
var unitSynonyms = map[string]string{
	"g":      "g",
	"gm":     "g",
	"gms":    "g",
	"gram":   "g",
	"grams":  "g",
	"kg":     "kg",
	"kgs":    "kg",
	"kilo":   "kg",
	"kilos":  "kg",
	"mg":     "mg",
	"mgs":    "mg",
	"ml":     "ml",
	"mls":    "ml",
	"l":      "l",
	"lt":     "l",
	"ltr":    "l",
	"ltrs":   "l",
	"litre":  "l",
	"litres": "l",
	"liter":  "l",
	"liters": "l",
	"pc":     "pc",
	"pcs":    "pc",
	"piece":  "pc",
	"pieces": "pc",
	"unit":   "pc",
	"units":  "pc",
	"count":  "pc",
	"n":      "pc",
	"pack":   "pack",
	"packs":  "pack",
	"pkt":    "pack",
	"m":      "m",
	"mtr":    "m",
	"meter":  "m",
	"metre":  "m",
	"cm":     "cm",
	"cms":    "cm",
}

// extraUnits holds config-loaded synonym overrides, merged at startup before
// any run begins and read-only thereafter.
var extraUnits = map[string]string{}

// CanonicalUnit maps a token to its canonical unit, reporting whether the
// token is a unit at all.
func CanonicalUnit(s string) (string, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if u, ok := extraUnits[s]; ok {
		return u, true
	}
	u, ok := unitSynonyms[s]
	return u, ok
}

// RegisterUnits merges additional synonym→canonical pairs from configuration.
// Must be called before any pipeline run starts.
func RegisterUnits(syn map[string]string) {
	for k, v := range syn {
		extraUnits[strings.ToLower(k)] = strings.ToLower(v)
	}
}

// ToBase converts a quantity to its base unit so that equal amounts written
// in different units group together (kg→g, l→ml, m→cm).
func ToBase(value float64, unit string) (float64, string) {
	switch unit {
	case "kg":
		return value * 1000, "g"
	case "mg":
		return value / 1000, "g"
	case "l":
		return value * 1000, "ml"
	case "m":
		return value * 100, "cm"
	default:
		return value, unit
	}
}
