package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/rules"
)

// BuildReport freezes the resolved fields, violations and verdict into the
// final ComplianceReport. Pure assembly, no business logic.
func BuildReport(
	listing model.ListingInput,
	fields map[model.FieldType]model.ResolvedField,
	evaluation *rules.Evaluation,
	regions []model.Region,
	phases []model.PhaseResult,
) *model.ComplianceReport {
	return &model.ComplianceReport{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		ListingURL:  listing.URL,
		Category:    listing.Category,
		Fields:      fields,
		Violations:  evaluation.Violations,
		Verdict:     evaluation.Verdict,
		Regions:     regions,
		Phases:      phases,
	}
}
