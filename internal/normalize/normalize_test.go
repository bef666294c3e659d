package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLine_CollapsesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "net wt 250g", Line("  Net\tWt   250g \n"))
	assert.Equal(t, "", Line("   \t\n"))
}

func TestLine_StripsControlAndZeroWidth(t *testing.T) {
	assert.Equal(t, "country of origin: india", Line("Country\u200e of\u200f Origin:\u200b India\ufeff"))
	assert.Equal(t, "net wt", Line("Net\u0007 Wt"))
}

func TestLine_NFKCFoldsFullWidth(t *testing.T) {
	// Full-width digits from CJK-locale listings normalize to ASCII.
	assert.Equal(t, "250g", Line("２５０g"))
}

func TestTokenize_SplitsNumberFromUnit(t *testing.T) {
	toks := Tokenize("Net Wt 250g")
	var texts []string
	for _, tok := range toks {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"net", "wt", "250", "g"}, texts)
	assert.Equal(t, TagDigitGroup, toks[2].Tag)
	assert.Equal(t, TagUnit, toks[3].Tag)
}

func TestTokenize_ThousandSeparators(t *testing.T) {
	toks := Tokenize("MRP: Rs 1,199.50")
	var digit *Token
	for i := range toks {
		if toks[i].Tag == TagDigitGroup {
			digit = &toks[i]
		}
	}
	if assert.NotNil(t, digit) {
		assert.Equal(t, "1199.50", digit.Text)
	}
}

func TestTokenize_CurrencyGlyph(t *testing.T) {
	toks := Tokenize("₹199")
	assert.Len(t, toks, 2)
	assert.Equal(t, Token{Text: "INR", Tag: TagCurrency}, toks[0])
	assert.Equal(t, Token{Text: "199", Tag: TagDigitGroup}, toks[1])
}

func TestCanonicalUnit(t *testing.T) {
	cases := map[string]string{
		"g": "g", "gm": "g", "gms": "g", "Grams": "g",
		"kgs": "kg", "KG": "kg",
		"ltr": "l", "Litres": "l",
		"pcs": "pc", "Pieces": "pc",
	}
	for in, want := range cases {
		got, ok := CanonicalUnit(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := CanonicalUnit("foo")
	assert.False(t, ok)
}

func TestToBase(t *testing.T) {
	v, u := ToBase(0.25, "kg")
	assert.Equal(t, 250.0, v)
	assert.Equal(t, "g", u)

	v, u = ToBase(1.5, "l")
	assert.Equal(t, 1500.0, v)
	assert.Equal(t, "ml", u)

	v, u = ToBase(250, "g")
	assert.Equal(t, 250.0, v)
	assert.Equal(t, "g", u)
}

func TestCurrencyCode(t *testing.T) {
	code, ok := CurrencyCode("Rs")
	assert.True(t, ok)
	assert.Equal(t, "INR", code)

	code, ok = CurrencyCode("$")
	assert.True(t, ok)
	assert.Equal(t, "USD", code)

	// "mrp" is a marker, not a currency.
	_, ok = CurrencyCode("mrp")
	assert.False(t, ok)
	assert.True(t, IsPriceMarker("MRP"))
}

func TestLine_Deterministic(t *testing.T) {
	in := "Mfd  By: ACME\u200b Foods\nCountry of Origin: INDIA"
	assert.Equal(t, Line(in), Line(in))
}
