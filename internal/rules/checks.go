package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/labelguard/compliance-cli/internal/model"
)

// Check evaluates resolved fields and returns the offending ones, mapped to
// the actual value that failed. An empty result means the check passed.
// Checks run only after the engine has confirmed every required field is
// present, so they may assume non-ABSENT values.
type Check func(fields map[model.FieldType]model.ResolvedField, required []model.FieldType) map[model.FieldType]string

// checkBuilder validates a check's args at load time and returns the
// compiled predicate. Bad args fail the rule set load, not the run.
type checkBuilder func(args map[string]any) (Check, error)

var checkBuilders = map[string]checkBuilder{
	"present":          buildPresent,
	"min_confidence":   buildMinConfidence,
	"quantity_unit_in": buildQuantityUnitIn,
	"price_range":      buildPriceRange,
	"country_in":       buildCountryIn,
	"regex":            buildRegex,
	"within_days":      buildWithinDays,
}

// compileCheck resolves a CheckSpec into its predicate. A nil spec means the
// rule is presence-only.
func compileCheck(spec *model.CheckSpec) (Check, error) {
	if spec == nil {
		return buildPresent(nil)
	}
	builder, ok := checkBuilders[spec.Name]
	if !ok {
		return nil, eris.Errorf("unknown check %q", spec.Name)
	}
	check, err := builder(spec.Args)
	if err != nil {
		return nil, eris.Wrapf(err, "check %q", spec.Name)
	}
	return check, nil
}

// present passes whenever the engine reaches it: required-field absence is
// handled by the engine's missing-field branch before any check runs.
func buildPresent(map[string]any) (Check, error) {
	return func(map[model.FieldType]model.ResolvedField, []model.FieldType) map[model.FieldType]string {
		return nil
	}, nil
}

func buildMinConfidence(args map[string]any) (Check, error) {
	threshold, err := argFloat(args, "threshold")
	if err != nil {
		return nil, err
	}
	return func(fields map[model.FieldType]model.ResolvedField, required []model.FieldType) map[model.FieldType]string {
		var out map[model.FieldType]string
		for _, ft := range required {
			if rf := fields[ft]; rf.Confidence < threshold {
				out = offend(out, ft, fmt.Sprintf("confidence %.2f", rf.Confidence))
			}
		}
		return out
	}, nil
}

func buildQuantityUnitIn(args map[string]any) (Check, error) {
	units, err := argStrings(args, "units")
	if err != nil {
		return nil, err
	}
	allowed := stringSet(units)
	return func(fields map[model.FieldType]model.ResolvedField, _ []model.FieldType) map[model.FieldType]string {
		rf := fields[model.FieldNetQuantity]
		if rf.Absent() || rf.Value.Quantity == nil {
			return nil
		}
		if !allowed[strings.ToLower(rf.Value.Quantity.Unit)] {
			return offend(nil, model.FieldNetQuantity, rf.Value.String())
		}
		return nil
	}, nil
}

func buildPriceRange(args map[string]any) (Check, error) {
	min, err := argFloat(args, "min")
	if err != nil {
		return nil, err
	}
	max, err := argFloat(args, "max")
	if err != nil {
		return nil, err
	}
	currency, _ := args["currency"].(string)
	return func(fields map[model.FieldType]model.ResolvedField, _ []model.FieldType) map[model.FieldType]string {
		rf := fields[model.FieldPrice]
		if rf.Absent() || rf.Value.Money == nil {
			return nil
		}
		m := rf.Value.Money
		amount := float64(m.Amount) / 100
		if (currency != "" && !strings.EqualFold(m.Currency, currency)) || amount < min || amount > max {
			return offend(nil, model.FieldPrice, rf.Value.String())
		}
		return nil
	}, nil
}

func buildCountryIn(args map[string]any) (Check, error) {
	countries, err := argStrings(args, "countries")
	if err != nil {
		return nil, err
	}
	allowed := stringSet(countries)
	return func(fields map[model.FieldType]model.ResolvedField, _ []model.FieldType) map[model.FieldType]string {
		rf := fields[model.FieldCountry]
		if rf.Absent() {
			return nil
		}
		if !allowed[strings.ToLower(rf.Value.Text)] {
			return offend(nil, model.FieldCountry, rf.Value.Text)
		}
		return nil
	}, nil
}

func buildRegex(args map[string]any) (Check, error) {
	field, err := argString(args, "field")
	if err != nil {
		return nil, err
	}
	pattern, err := argString(args, "pattern")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "pattern %q", pattern)
	}
	ft := model.FieldType(field)
	return func(fields map[model.FieldType]model.ResolvedField, _ []model.FieldType) map[model.FieldType]string {
		rf := fields[ft]
		if rf.Absent() {
			return nil
		}
		if !re.MatchString(rf.Value.String()) {
			return offend(nil, ft, rf.Value.String())
		}
		return nil
	}, nil
}

// within_days fails when the date field lies more than N days in the past.
// Future dates always pass, so days=0 reads as "not yet expired" for expiry
// dates and days=365 as "manufactured within the last year".
func buildWithinDays(args map[string]any) (Check, error) {
	field, err := argString(args, "field")
	if err != nil {
		return nil, err
	}
	days, err := argFloat(args, "days")
	if err != nil {
		return nil, err
	}
	ft := model.FieldType(field)
	return func(fields map[model.FieldType]model.ResolvedField, _ []model.FieldType) map[model.FieldType]string {
		rf := fields[ft]
		if rf.Absent() || rf.Value.Date == nil {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -int(days))
		if rf.Value.Date.Before(cutoff) {
			return offend(nil, ft, rf.Value.String())
		}
		return nil
	}, nil
}

func offend(m map[model.FieldType]string, ft model.FieldType, value string) map[model.FieldType]string {
	if m == nil {
		m = make(map[model.FieldType]string)
	}
	m[ft] = value
	return m
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

func argFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, eris.Errorf("missing arg %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, eris.Errorf("arg %q must be a number", key)
}

func argString(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return "", eris.Errorf("missing arg %q", key)
	}
	return s, nil
}

func argStrings(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key].([]any)
	if !ok {
		if typed, tok := args[key].([]string); tok {
			return typed, nil
		}
		return nil, eris.Errorf("missing arg %q", key)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, sok := v.(string)
		if !sok {
			return nil, eris.Errorf("arg %q must be a string list", key)
		}
		out = append(out, s)
	}
	return out, nil
}
