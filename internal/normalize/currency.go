package normalize

import "strings"

// currencyGlyphs maps symbols and common spellings to ISO 4217 codes. Only
// unambiguous mappings appear here; "$" is treated as USD by policy.
var currencyGlyphs = map[string]string{
	"₹":      "INR",
	"rs":     "INR",
	"rs.":    "INR",
	"inr":    "INR",
	"rupees": "INR",
	"mrp":    "", // marker, not a currency by itself
	"$":      "USD",
	"usd":    "USD",
	"€":      "EUR",
	"eur":    "EUR",
	"£":      "GBP",
	"gbp":    "GBP",
	"¥":      "JPY",
	"jpy":    "JPY",
	"aed":    "AED",
	"sgd":    "SGD",
}

// CurrencyCode maps a currency glyph or spelling to its ISO code.
func CurrencyCode(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	code, ok := currencyGlyphs[s]
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// IsPriceMarker reports whether the token marks a retail price declaration
// without naming a currency ("mrp", "price").
func IsPriceMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mrp", "price", "m.r.p":
		return true
	}
	return false
}
