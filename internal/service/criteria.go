package service

import (
	"fmt"

	"surveystream-data/internal/domain"
)

// mappingEntity a normalized target, enumerator or supervisor candidate
// presented to the criteria evaluators. Multi-valued attributes (a
// supervisor speaking several languages, covering several locations)
// carry all values; tuple expansion turns each combination into one
// virtual row.
type mappingEntity struct {
	UID          string
	ID           string // human-readable id for display/errors
	Name         string
	Email        string
	Gender       string
	Languages    []string
	LocationUIDs []string
}

// criterionEvaluator one tagged criterion variant. The bucketing engine
// operates only on the values these produce, never on raw column names.
type criterionEvaluator interface {
	name() string
	valuesOf(e *mappingEntity) []string
}

// locationCriterion buckets by the prime-level ancestor of the entity's
// location, not the location's own uid
type locationCriterion struct {
	primeByLocation map[string]string // location_uid -> prime ancestor uid
}

func (c *locationCriterion) name() string { return domain.CriterionLocation }

func (c *locationCriterion) valuesOf(e *mappingEntity) []string {
	values := []string{}
	for _, loc := range e.LocationUIDs {
		if prime, ok := c.primeByLocation[loc]; ok && prime != "" {
			values = append(values, prime)
		}
	}
	return values
}

type languageCriterion struct{}

func (languageCriterion) name() string { return domain.CriterionLanguage }

func (languageCriterion) valuesOf(e *mappingEntity) []string { return e.Languages }

type genderCriterion struct{}

func (genderCriterion) name() string { return domain.CriterionGender }

func (genderCriterion) valuesOf(e *mappingEntity) []string {
	if e.Gender == "" {
		return nil
	}
	return []string{e.Gender}
}

// manualCriterion assigns the same sentinel to every entity, collapsing
// them all into a single bucket
type manualCriterion struct{}

func (manualCriterion) name() string { return domain.CriterionManual }

func (manualCriterion) valuesOf(e *mappingEntity) []string { return []string{domain.ManualSentinel} }

// buildCriteria maps the survey's active criteria names to evaluators in
// set order. Location requires a configured prime geo level.
func buildCriteria(names []string, primeByLocation map[string]string) ([]criterionEvaluator, error) {
	out := make([]criterionEvaluator, 0, len(names))
	for _, n := range names {
		switch n {
		case domain.CriterionLocation:
			if primeByLocation == nil {
				return nil, &domain.ConfigurationError{Message: "Prime geo level not configured"}
			}
			out = append(out, &locationCriterion{primeByLocation: primeByLocation})
		case domain.CriterionLanguage:
			out = append(out, languageCriterion{})
		case domain.CriterionGender:
			out = append(out, genderCriterion{})
		case domain.CriterionManual:
			out = append(out, manualCriterion{})
		default:
			return nil, fmt.Errorf("invalid mapping criterion: %s", n)
		}
	}
	return out, nil
}

// expandTuples computes the entity's criteria tuples: per criterion the
// value list (empty list becomes a single empty value so the entity still
// lands in a bucket), then the cross product across criteria. A
// single-valued entity yields exactly one tuple.
func expandTuples(e *mappingEntity, criteria []criterionEvaluator) []domain.CriteriaTuple {
	tuples := []domain.CriteriaTuple{{}}
	for _, c := range criteria {
		values := c.valuesOf(e)
		if len(values) == 0 {
			values = []string{""}
		}
		next := make([]domain.CriteriaTuple, 0, len(tuples)*len(values))
		for _, t := range tuples {
			for _, v := range values {
				nt := make(domain.CriteriaTuple, len(t), len(t)+1)
				copy(nt, t)
				nt = append(nt, domain.CriteriaValue{Criteria: c.name(), Value: v})
				next = append(next, nt)
			}
		}
		tuples = next
	}
	return tuples
}
