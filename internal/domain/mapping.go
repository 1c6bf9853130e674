package domain

import (
	"strings"
)

// Mapping criteria names (mapping_criteria.criteria values)
const (
	CriterionLocation = "Location"
	CriterionLanguage = "Language"
	CriterionGender   = "Gender"
	CriterionManual   = "Manual"
)

// ManualSentinel the shared value assigned for the Manual criterion: every
// entity gets the same value so they all collapse into a single bucket.
const ManualSentinel = "manual"

// Entity kinds for mapping/override scoping
const (
	EntityKindTarget   = "target"
	EntityKindSurveyor = "surveyor"
)

// Mapping bucket statuses
const (
	MappingStatusComplete = "Complete"
	MappingStatusPending  = "Pending"
)

// ValidCriterion reports whether name is one of the supported criteria
func ValidCriterion(name string) bool {
	switch name {
	case CriterionLocation, CriterionLanguage, CriterionGender, CriterionManual:
		return true
	}
	return false
}

// CriteriaValue one (criteria, value) pair of a tuple or override
type CriteriaValue struct {
	Criteria string `json:"criteria"`
	Value    string `json:"value"`
}

// CriteriaTuple an ordered tuple of criteria values for one entity or
// supervisor candidate. Order follows the survey's active criteria set.
type CriteriaTuple []CriteriaValue

// Key canonical string form of the tuple, usable as a bucket map key.
// The tuple is already in active-criteria-set order, so no sorting here.
func (t CriteriaTuple) Key() string {
	parts := make([]string, 0, len(t))
	for _, cv := range t {
		parts = append(parts, cv.Criteria+"="+cv.Value)
	}
	return strings.Join(parts, ";")
}

// Equals reports whether two tuples carry the same pairs regardless of
// order. Pairs are compared as multisets, so a tuple with a repeated
// pair only matches another tuple repeating it the same number of times.
func (t CriteriaTuple) Equals(other CriteriaTuple) bool {
	if len(t) != len(other) {
		return false
	}
	counts := make(map[CriteriaValue]int, len(t))
	for _, cv := range t {
		counts[cv]++
	}
	for _, ov := range other {
		counts[ov]--
		if counts[ov] < 0 {
			return false
		}
	}
	return true
}

// MappingConfig a persisted manual override (mapping_configs table).
// Entities whose raw tuple equals MappingValues are re-bucketed under
// MappedTo for supervisor resolution.
type MappingConfig struct {
	ConfigUID     string        `db:"config_uid"`
	FormUID       string        `db:"form_uid"`
	EntityKind    string        `db:"entity_kind"` // target | surveyor
	MappingValues CriteriaTuple `db:"mapping_values"` // JSONB
	MappedTo      CriteriaTuple `db:"mapped_to"`      // JSONB
}

// UsesOnlyCriteria reports whether every pair of both tuples references a
// criterion in the given active set. Overrides referencing criteria dropped
// from the set are stale and get pruned.
func (mc *MappingConfig) UsesOnlyCriteria(criteria []string) bool {
	active := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		active[c] = true
	}
	for _, cv := range mc.MappingValues {
		if !active[cv.Criteria] {
			return false
		}
	}
	for _, cv := range mc.MappedTo {
		if !active[cv.Criteria] {
			return false
		}
	}
	return true
}
