package model

import "time"

// Verdict is the run's final compliance classification.
type Verdict string

const (
	VerdictCompliant     Verdict = "COMPLIANT"
	VerdictNonCompliant  Verdict = "NON_COMPLIANT"
	VerdictIndeterminate Verdict = "INDETERMINATE"
)

// ComplianceReport is the frozen output of one pipeline run.
type ComplianceReport struct {
	RunID       string                      `json:"run_id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	ListingURL  string                      `json:"listing_url,omitempty"`
	Category    string                      `json:"category"`
	Fields      map[FieldType]ResolvedField `json:"fields"`
	Violations  []Violation                 `json:"violations"`
	Verdict     Verdict                     `json:"verdict"`
	Regions     []Region                    `json:"regions,omitempty"`
	Phases      []PhaseResult               `json:"phases,omitempty"`
}

// Field returns the resolved field for t, or an ABSENT placeholder when the
// report has no entry (defensive for rule messages over unknown taxonomy).
func (r *ComplianceReport) Field(t FieldType) ResolvedField {
	if f, ok := r.Fields[t]; ok {
		return f
	}
	return ResolvedField{Field: t}
}

// BlockingCount returns the number of BLOCKING violations.
func (r *ComplianceReport) BlockingCount() int {
	var n int
	for _, v := range r.Violations {
		if v.Severity == SeverityBlocking {
			n++
		}
	}
	return n
}
