// Package rules evaluates the declarative compliance rule set against a
// resolved field set. The rule set is loaded once at startup and shared
// read-only across concurrent runs; all per-run state lives in Evaluation.
package rules

import (
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/labelguard/compliance-cli/internal/model"
)

// EvalState tracks one evaluation through its lifecycle.
type EvalState string

const (
	EvalPending    EvalState = "PENDING"
	EvalEvaluating EvalState = "EVALUATING"
	EvalDone       EvalState = "DONE"
)

// Engine holds the compiled rule set. Immutable after NewEngine; rules are
// evaluated independently, so concurrent Evaluate calls share nothing mutable.
type Engine struct {
	rules     []model.Rule
	compiled  map[string]Check
	absentMax float64
}

// NewEngine compiles every rule's check. absentMax is the confidence below
// which a required field counts as missing; zero means the standard 0.3.
func NewEngine(ruleSet []model.Rule, absentMax float64) (*Engine, error) {
	if absentMax <= 0 {
		absentMax = 0.3
	}
	e := &Engine{
		rules:     ruleSet,
		compiled:  make(map[string]Check, len(ruleSet)),
		absentMax: absentMax,
	}
	for _, r := range ruleSet {
		check, err := compileCheck(r.Check)
		if err != nil {
			return nil, eris.Wrapf(err, "rule %q", r.ID)
		}
		e.compiled[r.ID] = check
	}
	return e, nil
}

// Rules returns the loaded rule set.
func (e *Engine) Rules() []model.Rule { return e.rules }

// Evaluation is the outcome of running the rule set against one field set.
type Evaluation struct {
	State      EvalState
	Violations []model.Violation
	Verdict    model.Verdict
}

// Evaluate runs every applicable rule against the resolved fields. Rules with
// a required field missing (ABSENT, or resolved below the confidence
// threshold) produce a missing-field violation and their check is never
// invoked. Violations come back sorted by severity descending then rule id.
func (e *Engine) Evaluate(category string, fields map[model.FieldType]model.ResolvedField) *Evaluation {
	ev := &Evaluation{State: EvalPending}
	ev.State = EvalEvaluating

	for _, r := range e.rules {
		if !e.applies(r, category) {
			continue
		}
		if missing := e.missingFields(r, fields); len(missing) > 0 {
			ev.Violations = append(ev.Violations, model.Violation{
				RuleID:        r.ID,
				Severity:      r.Severity,
				Message:       expandMessage(r.Message, missing[0], ""),
				MissingFields: missing,
			})
			continue
		}
		offending := e.compiled[r.ID](fields, r.RequiredFields)
		if len(offending) == 0 {
			continue
		}
		ft, value := firstOffending(offending)
		ev.Violations = append(ev.Violations, model.Violation{
			RuleID:          r.ID,
			Severity:        r.Severity,
			Message:         expandMessage(r.Message, ft, value),
			OffendingFields: offending,
		})
	}

	model.SortViolations(ev.Violations)
	ev.Verdict = verdict(ev.Violations)
	ev.State = EvalDone
	return ev
}

// applies matches the listing category against the rule's category globs.
// An empty applies_to list matches every category.
func (e *Engine) applies(r model.Rule, category string) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	cat := strings.ToLower(strings.TrimSpace(category))
	for _, glob := range r.AppliesTo {
		if ok, err := path.Match(strings.ToLower(glob), cat); err == nil && ok {
			return true
		}
	}
	return false
}

func (e *Engine) missingFields(r model.Rule, fields map[model.FieldType]model.ResolvedField) []model.FieldType {
	var missing []model.FieldType
	for _, ft := range r.RequiredFields {
		rf, ok := fields[ft]
		if !ok || rf.Absent() || rf.Confidence < e.absentMax {
			missing = append(missing, ft)
		}
	}
	return missing
}

// verdict derives the overall classification. NON_COMPLIANT needs a BLOCKING
// check that positively failed on real values; BLOCKING gaps from missing
// fields alone yield INDETERMINATE. Warnings and infos never block.
func verdict(violations []model.Violation) model.Verdict {
	var blockingGap bool
	for _, v := range violations {
		if v.Severity != model.SeverityBlocking {
			continue
		}
		if v.Evaluated() {
			return model.VerdictNonCompliant
		}
		blockingGap = true
	}
	if blockingGap {
		return model.VerdictIndeterminate
	}
	return model.VerdictCompliant
}

// expandMessage fills {field} and {value} placeholders in a message template.
func expandMessage(tmpl string, ft model.FieldType, value string) string {
	out := strings.ReplaceAll(tmpl, "{field}", string(ft))
	return strings.ReplaceAll(out, "{value}", value)
}

// firstOffending picks a deterministic representative for the message.
func firstOffending(offending map[model.FieldType]string) (model.FieldType, string) {
	var best model.FieldType
	for ft := range offending {
		if best == "" || ft < best {
			best = ft
		}
	}
	return best, offending[best]
}
