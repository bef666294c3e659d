package model

import (
	"fmt"
	"strconv"
	"time"
)

// FieldType identifies one compliance-relevant data point.
type FieldType string

const (
	FieldPrice        FieldType = "price"
	FieldNetQuantity  FieldType = "net_quantity"
	FieldCountry      FieldType = "country_of_origin"
	FieldManufacturer FieldType = "manufacturer"
	FieldMfgDate      FieldType = "manufacture_date"
	FieldExpiryDate   FieldType = "expiry_date"
)

// FieldTypes lists the full field taxonomy in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldPrice,
		FieldNetQuantity,
		FieldCountry,
		FieldManufacturer,
		FieldMfgDate,
		FieldExpiryDate,
	}
}

// ValueKind discriminates the typed payload of a FieldValue.
type ValueKind string

const (
	KindMoney    ValueKind = "money"
	KindQuantity ValueKind = "quantity"
	KindText     ValueKind = "text"
	KindDate     ValueKind = "date"
)

// Money is an amount in minor units of an ISO 4217 currency.
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Quantity is a magnitude in a canonical unit (g, ml, pc after synonym
// mapping and base-unit conversion).
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// FieldValue is the typed value of a candidate or resolved field. Exactly one
// payload matching Kind is set.
type FieldValue struct {
	Kind     ValueKind  `json:"kind"`
	Money    *Money     `json:"money,omitempty"`
	Quantity *Quantity  `json:"quantity,omitempty"`
	Text     string     `json:"text,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// Key returns a normalized grouping key: two values with equal keys are the
// same reading for resolution purposes.
func (v FieldValue) Key() string {
	switch v.Kind {
	case KindMoney:
		if v.Money == nil {
			return "money:"
		}
		return "money:" + v.Money.Currency + ":" + strconv.FormatInt(v.Money.Amount, 10)
	case KindQuantity:
		if v.Quantity == nil {
			return "quantity:"
		}
		return "quantity:" + strconv.FormatFloat(v.Quantity.Value, 'f', -1, 64) + v.Quantity.Unit
	case KindDate:
		if v.Date == nil {
			return "date:"
		}
		return "date:" + v.Date.Format("2006-01-02")
	default:
		return "text:" + v.Text
	}
}

// String renders the value for violation messages and reports.
func (v FieldValue) String() string {
	switch v.Kind {
	case KindMoney:
		if v.Money == nil {
			return ""
		}
		return fmt.Sprintf("%s %d.%02d", v.Money.Currency, v.Money.Amount/100, v.Money.Amount%100)
	case KindQuantity:
		if v.Quantity == nil {
			return ""
		}
		return strconv.FormatFloat(v.Quantity.Value, 'f', -1, 64) + " " + v.Quantity.Unit
	case KindDate:
		if v.Date == nil {
			return ""
		}
		return v.Date.Format("2006-01-02")
	default:
		return v.Text
	}
}

// CandidateSource tags which producer emitted a candidate.
type CandidateSource string

const (
	SourceOCR        CandidateSource = "ocr"
	SourceSellerText CandidateSource = "seller-text"
	SourceAssist     CandidateSource = "assist"
)

// Provenance records where a candidate's raw text came from.
type Provenance struct {
	RegionID string          `json:"region_id,omitempty"`
	Source   CandidateSource `json:"source"`
	RawSpan  string          `json:"raw_span"`
}

// FieldCandidate is one parsed reading for a field. Candidates are append-only
// inputs to resolution and are never mutated after creation.
type FieldCandidate struct {
	Field      FieldType  `json:"field"`
	Value      FieldValue `json:"value"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
}

// ResolvedField is the single value (or absence) committed for a field type.
// A nil Value means ABSENT. Rejected candidates are retained in Conflicting,
// never silently dropped.
type ResolvedField struct {
	Field       FieldType        `json:"field"`
	Value       *FieldValue      `json:"value,omitempty"`
	Confidence  float64          `json:"confidence"`
	Provenance  *Provenance      `json:"provenance,omitempty"`
	Conflicting []FieldCandidate `json:"conflicting_candidates,omitempty"`
}

// Absent reports whether no value was committed for the field.
func (r ResolvedField) Absent() bool {
	return r.Value == nil
}
