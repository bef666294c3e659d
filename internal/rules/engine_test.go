package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelguard/compliance-cli/internal/model"
)

func money(amount int64, conf float64) model.ResolvedField {
	return model.ResolvedField{
		Field:      model.FieldPrice,
		Value:      &model.FieldValue{Kind: model.KindMoney, Money: &model.Money{Currency: "INR", Amount: amount}},
		Confidence: conf,
	}
}

func quantity(value float64, unit string, conf float64) model.ResolvedField {
	return model.ResolvedField{
		Field:      model.FieldNetQuantity,
		Value:      &model.FieldValue{Kind: model.KindQuantity, Quantity: &model.Quantity{Value: value, Unit: unit}},
		Confidence: conf,
	}
}

func text(ft model.FieldType, s string, conf float64) model.ResolvedField {
	return model.ResolvedField{
		Field:      ft,
		Value:      &model.FieldValue{Kind: model.KindText, Text: s},
		Confidence: conf,
	}
}

func date(ft model.FieldType, d time.Time, conf float64) model.ResolvedField {
	return model.ResolvedField{
		Field:      ft,
		Value:      &model.FieldValue{Kind: model.KindDate, Date: &d},
		Confidence: conf,
	}
}

func fieldSet(fields ...model.ResolvedField) map[model.FieldType]model.ResolvedField {
	out := make(map[model.FieldType]model.ResolvedField)
	for _, ft := range model.FieldTypes() {
		out[ft] = model.ResolvedField{Field: ft}
	}
	for _, f := range fields {
		out[f.Field] = f
	}
	return out
}

// fourDeclarations is the minimal mandatory-declaration rule set used by the
// scenario tests.
func fourDeclarations(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine([]model.Rule{
		{ID: "r-price", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityBlocking, Message: "missing {field}"},
		{ID: "r-qty", RequiredFields: []model.FieldType{model.FieldNetQuantity}, Severity: model.SeverityBlocking, Message: "missing {field}"},
		{ID: "r-mfr", RequiredFields: []model.FieldType{model.FieldManufacturer}, Severity: model.SeverityBlocking, Message: "missing {field}"},
		{ID: "r-country", RequiredFields: []model.FieldType{model.FieldCountry}, Severity: model.SeverityBlocking, Message: "missing {field}"},
	}, 0.3)
	require.NoError(t, err)
	return e
}

func TestEvaluate_AllDeclarationsPresent(t *testing.T) {
	ev := fourDeclarations(t).Evaluate("food", fieldSet(
		money(19900, 1.0),
		quantity(250, "g", 0.9),
		text(model.FieldManufacturer, "Acme Foods", 1.0),
		text(model.FieldCountry, "India", 1.0),
	))

	assert.Equal(t, EvalDone, ev.State)
	assert.Empty(t, ev.Violations)
	assert.Equal(t, model.VerdictCompliant, ev.Verdict)
}

func TestEvaluate_MissingManufacturerNeverCompliant(t *testing.T) {
	ev := fourDeclarations(t).Evaluate("food", fieldSet(
		money(19900, 1.0),
		quantity(250, "g", 0.9),
		text(model.FieldCountry, "India", 1.0),
	))

	require.Len(t, ev.Violations, 1)
	v := ev.Violations[0]
	assert.Equal(t, "r-mfr", v.RuleID)
	assert.Equal(t, model.SeverityBlocking, v.Severity)
	assert.Equal(t, []model.FieldType{model.FieldManufacturer}, v.MissingFields)
	assert.False(t, v.Evaluated())
	assert.Empty(t, v.OffendingFields)
	assert.Equal(t, model.VerdictIndeterminate, ev.Verdict)
}

func TestEvaluate_LowConfidenceCountsAsMissing(t *testing.T) {
	ev := fourDeclarations(t).Evaluate("food", fieldSet(
		money(19900, 0.2),
		quantity(250, "g", 0.9),
		text(model.FieldManufacturer, "Acme Foods", 1.0),
		text(model.FieldCountry, "India", 1.0),
	))

	require.Len(t, ev.Violations, 1)
	assert.Equal(t, "r-price", ev.Violations[0].RuleID)
	assert.Equal(t, model.VerdictIndeterminate, ev.Verdict)
}

func TestEvaluate_AmbiguityCappedFieldStillPresent(t *testing.T) {
	// 0.45 sits above the 0.3 missing threshold: a conflicted reading is
	// still a reading.
	ev := fourDeclarations(t).Evaluate("food", fieldSet(
		money(19900, 1.0),
		quantity(300, "g", 0.45),
		text(model.FieldManufacturer, "Acme Foods", 1.0),
		text(model.FieldCountry, "India", 1.0),
	))
	assert.Equal(t, model.VerdictCompliant, ev.Verdict)
}

func TestEvaluate_FailedBlockingCheckNonCompliant(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:             "unit",
		RequiredFields: []model.FieldType{model.FieldNetQuantity},
		Check:          &model.CheckSpec{Name: "quantity_unit_in", Args: map[string]any{"units": []any{"g", "kg"}}},
		Severity:       model.SeverityBlocking,
		Message:        "bad unit {value}",
	}}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet(quantity(2, "pc", 0.9)))

	require.Len(t, ev.Violations, 1)
	v := ev.Violations[0]
	assert.True(t, v.Evaluated())
	assert.Equal(t, "2 pc", v.OffendingFields[model.FieldNetQuantity])
	assert.Equal(t, "bad unit 2 pc", v.Message)
	assert.Equal(t, model.VerdictNonCompliant, ev.Verdict)
}

func TestEvaluate_VerdictMonotonic(t *testing.T) {
	// A positively failed BLOCKING check dominates missing-field gaps.
	e, err := NewEngine([]model.Rule{
		{ID: "a-missing", RequiredFields: []model.FieldType{model.FieldManufacturer}, Severity: model.SeverityBlocking, Message: "missing {field}"},
		{ID: "b-range", RequiredFields: []model.FieldType{model.FieldPrice},
			Check:    &model.CheckSpec{Name: "price_range", Args: map[string]any{"min": 1.0, "max": 100.0}},
			Severity: model.SeverityBlocking, Message: "price {value} out of range"},
	}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet(money(19900000, 1.0)))
	assert.Equal(t, model.VerdictNonCompliant, ev.Verdict, "offending value outranks the evaluation gap")
}

func TestEvaluate_WarningsDoNotBlock(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:       "plausible",
		Check:    &model.CheckSpec{Name: "price_range", Args: map[string]any{"min": 1.0, "max": 100.0}},
		Severity: model.SeverityWarning,
		Message:  "price {value} out of range",
	}}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet(money(19900000, 1.0)))
	require.Len(t, ev.Violations, 1)
	assert.Equal(t, model.VerdictCompliant, ev.Verdict)
}

func TestEvaluate_CategoryGlobs(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:             "food-only",
		AppliesTo:      []string{"food*", "grocery*"},
		RequiredFields: []model.FieldType{model.FieldExpiryDate},
		Severity:       model.SeverityBlocking,
		Message:        "missing {field}",
	}}, 0.3)
	require.NoError(t, err)

	assert.Len(t, e.Evaluate("food-snacks", fieldSet()).Violations, 1)
	assert.Len(t, e.Evaluate("Grocery", fieldSet()).Violations, 1)
	assert.Empty(t, e.Evaluate("electronics", fieldSet()).Violations)
}

func TestEvaluate_ViolationOrdering(t *testing.T) {
	e, err := NewEngine([]model.Rule{
		{ID: "z-info", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityInfo, Message: "m"},
		{ID: "b-block", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityBlocking, Message: "m"},
		{ID: "a-warn", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityWarning, Message: "m"},
		{ID: "a-block", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityBlocking, Message: "m"},
	}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet())
	ids := make([]string, 0, len(ev.Violations))
	for _, v := range ev.Violations {
		ids = append(ids, v.RuleID)
	}
	assert.Equal(t, []string{"a-block", "b-block", "a-warn", "z-info"}, ids)
}

func TestEvaluate_ExpiredDateFails(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:             "expiry",
		RequiredFields: []model.FieldType{model.FieldExpiryDate},
		Check:          &model.CheckSpec{Name: "within_days", Args: map[string]any{"field": "expiry_date", "days": 0}},
		Severity:       model.SeverityBlocking,
		Message:        "expired {value}",
	}}, 0.3)
	require.NoError(t, err)

	past := time.Now().AddDate(0, -6, 0)
	ev := e.Evaluate("food", fieldSet(date(model.FieldExpiryDate, past, 1.0)))
	assert.Equal(t, model.VerdictNonCompliant, ev.Verdict)

	future := time.Now().AddDate(1, 0, 0)
	ev = e.Evaluate("food", fieldSet(date(model.FieldExpiryDate, future, 1.0)))
	assert.Equal(t, model.VerdictCompliant, ev.Verdict)
}

func TestEvaluate_CountryAllowList(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:       "origin",
		Check:    &model.CheckSpec{Name: "country_in", Args: map[string]any{"countries": []any{"India", "Vietnam"}}},
		Severity: model.SeverityBlocking,
		Message:  "origin {value} not allowed",
	}}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet(text(model.FieldCountry, "China", 1.0)))
	assert.Equal(t, model.VerdictNonCompliant, ev.Verdict)

	ev = e.Evaluate("food", fieldSet(text(model.FieldCountry, "India", 1.0)))
	assert.Equal(t, model.VerdictCompliant, ev.Verdict)
}

func TestEvaluate_RegexCheck(t *testing.T) {
	e, err := NewEngine([]model.Rule{{
		ID:       "mfr-format",
		Check:    &model.CheckSpec{Name: "regex", Args: map[string]any{"field": "manufacturer", "pattern": `^[A-Z]`}},
		Severity: model.SeverityInfo,
		Message:  "manufacturer {value} not title-cased",
	}}, 0.3)
	require.NoError(t, err)

	ev := e.Evaluate("food", fieldSet(text(model.FieldManufacturer, "acme", 1.0)))
	require.Len(t, ev.Violations, 1)

	ev = e.Evaluate("food", fieldSet(text(model.FieldManufacturer, "Acme", 1.0)))
	assert.Empty(t, ev.Violations)
}

func TestNewEngine_RejectsUnknownCheck(t *testing.T) {
	_, err := NewEngine([]model.Rule{{
		ID:       "bad",
		Check:    &model.CheckSpec{Name: "no_such_check"},
		Severity: model.SeverityInfo,
		Message:  "m",
	}}, 0.3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_check")
}
