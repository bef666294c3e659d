// Package resolve merges field candidates from all producers (region OCR,
// seller text, model assist) into exactly one ResolvedField per field type.
// Resolution is deterministic and order-independent: the same candidate
// multiset always yields the same result, whatever order producers finished in.
package resolve

import (
	"sort"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// Resolver applies the conflict-resolution policy. Immutable after
// construction, safe for concurrent runs.
type Resolver struct {
	majorityShare   float64
	ambiguityFactor float64
}

// New creates a Resolver from config, falling back to the standard thresholds
// when a value is unset.
func New(cfg config.ResolverConfig) *Resolver {
	r := &Resolver{
		majorityShare:   cfg.MajorityShare,
		ambiguityFactor: cfg.AmbiguityFactor,
	}
	if r.majorityShare <= 0 {
		r.majorityShare = 0.6
	}
	if r.ambiguityFactor <= 0 {
		r.ambiguityFactor = 0.5
	}
	return r
}

// Resolve reduces the full candidate list to one ResolvedField per field
// type. Fields with no candidates resolve to ABSENT with confidence 0.
func (r *Resolver) Resolve(cands []model.FieldCandidate) map[model.FieldType]model.ResolvedField {
	byField := make(map[model.FieldType][]model.FieldCandidate)
	for _, c := range cands {
		byField[c.Field] = append(byField[c.Field], c)
	}

	out := make(map[model.FieldType]model.ResolvedField, len(model.FieldTypes()))
	for _, ft := range model.FieldTypes() {
		out[ft] = r.resolveField(ft, byField[ft])
	}
	return out
}

// group is the candidates agreeing on one normalized value.
type group struct {
	key     string
	members []model.FieldCandidate
	sum     float64
}

func (r *Resolver) resolveField(ft model.FieldType, cands []model.FieldCandidate) model.ResolvedField {
	if len(cands) == 0 {
		return model.ResolvedField{Field: ft, Confidence: 0}
	}

	groups, total := groupByValue(cands)

	if len(groups) == 1 {
		best := groups[0].members[0]
		return model.ResolvedField{
			Field:      ft,
			Value:      &best.Value,
			Confidence: best.Confidence,
			Provenance: &best.Provenance,
		}
	}

	// Majority selection needs corroboration: a lone candidate never forms a
	// majority over another lone candidate, whatever its confidence share.
	top := groups[0]
	if len(top.members) > 1 && total > 0 && top.sum/total >= r.majorityShare {
		best := top.members[0]
		return model.ResolvedField{
			Field:       ft,
			Value:       &best.Value,
			Confidence:  best.Confidence,
			Provenance:  &best.Provenance,
			Conflicting: membersExcept(groups, top.key),
		}
	}

	// Genuine ambiguity: take the single strongest candidate, cap its
	// confidence, and keep everything it beat.
	best := strongest(cands)
	rejected := make([]model.FieldCandidate, 0, len(cands)-1)
	for _, c := range cands {
		if c != best {
			rejected = append(rejected, c)
		}
	}
	sortCandidates(rejected)
	return model.ResolvedField{
		Field:       ft,
		Value:       &best.Value,
		Confidence:  best.Confidence * r.ambiguityFactor,
		Provenance:  &best.Provenance,
		Conflicting: rejected,
	}
}

// groupByValue buckets candidates by normalized-equal value. Groups come back
// sorted by summed confidence desc, key asc; members by confidence desc with
// provenance tie-breaks, so the result is independent of input order.
func groupByValue(cands []model.FieldCandidate) ([]group, float64) {
	byKey := make(map[string]*group)
	var total float64
	for _, c := range cands {
		key := c.Value.Key()
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
		}
		g.members = append(g.members, c)
		g.sum += c.Confidence
		total += c.Confidence
	}

	groups := make([]group, 0, len(byKey))
	for _, g := range byKey {
		sortCandidates(g.members)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].sum != groups[j].sum {
			return groups[i].sum > groups[j].sum
		}
		return groups[i].key < groups[j].key
	})
	return groups, total
}

func membersExcept(groups []group, key string) []model.FieldCandidate {
	var out []model.FieldCandidate
	for _, g := range groups {
		if g.key == key {
			continue
		}
		out = append(out, g.members...)
	}
	sortCandidates(out)
	return out
}

func strongest(cands []model.FieldCandidate) model.FieldCandidate {
	sorted := make([]model.FieldCandidate, len(cands))
	copy(sorted, cands)
	sortCandidates(sorted)
	return sorted[0]
}

// sortCandidates orders by confidence desc, then value key, then provenance.
// The full key chain keeps resolution order-independent even for exact ties.
func sortCandidates(cands []model.FieldCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if ak, bk := a.Value.Key(), b.Value.Key(); ak != bk {
			return ak < bk
		}
		if a.Provenance.RegionID != b.Provenance.RegionID {
			return a.Provenance.RegionID < b.Provenance.RegionID
		}
		return a.Provenance.RawSpan < b.Provenance.RawSpan
	})
}
