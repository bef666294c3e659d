package model

import "sort"

// Severity classifies how a failed rule affects the verdict.
type Severity string

const (
	SeverityBlocking Severity = "BLOCKING"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Rank orders severities for violation sorting, highest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocking:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// CheckSpec names a registered check predicate and its arguments. Checks are
// data, not code: the engine looks the name up in its check registry.
type CheckSpec struct {
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// Rule is one declarative compliance rule. Rules are static configuration,
// loaded once per process and never mutated.
type Rule struct {
	ID             string      `json:"id" yaml:"id"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	AppliesTo      []string    `json:"applies_to,omitempty" yaml:"applies_to,omitempty"`
	RequiredFields []FieldType `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	Check          *CheckSpec  `json:"check,omitempty" yaml:"check,omitempty"`
	Severity       Severity    `json:"severity" yaml:"severity"`
	Message        string      `json:"message" yaml:"message"`
}

// Violation is a failed or unevaluable rule check.
type Violation struct {
	RuleID          string               `json:"rule_id"`
	Severity        Severity             `json:"severity"`
	Message         string               `json:"message"`
	MissingFields   []FieldType          `json:"missing_fields,omitempty"`
	OffendingFields map[FieldType]string `json:"offending_fields,omitempty"`
}

// Evaluated reports whether the rule's check actually ran: a violation with
// missing fields is an evaluation gap, not a positive failure.
func (v Violation) Evaluated() bool {
	return len(v.MissingFields) == 0
}

// SortViolations orders violations by severity descending, then rule id.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Severity.Rank() != vs[j].Severity.Rank() {
			return vs[i].Severity.Rank() > vs[j].Severity.Rank()
		}
		return vs[i].RuleID < vs[j].RuleID
	})
}
