package domain

import (
	"sort"
)

// Assignment one active row per target per form (assignments table).
// EnumeratorUID = nil means "unassigned".
type Assignment struct {
	TargetUID     string  `db:"target_uid"`
	EnumeratorUID *string `db:"enumerator_uid"` // nullable
	FormUID       string  `db:"form_uid"`
}

// AssignmentPair one requested upsert of a bulk apply.
// EnumeratorUID = nil clears an existing assignment.
type AssignmentPair struct {
	TargetUID     string  `json:"target_uid"`
	EnumeratorUID *string `json:"enumerator_uid"`
}

// AssignmentCounts classification of an applied batch against the
// pre-mutation assignment state
type AssignmentCounts struct {
	AssignmentsCount    int `json:"assignments_count"`
	NewAssignmentsCount int `json:"new_assignments_count"`
	ReAssignmentsCount  int `json:"re_assignments_count"`
	NoChangesCount      int `json:"no_changes_count"`
}

// AssignmentBatchFacts the data a repository loads, inside the apply
// transaction, to validate a batch. Keeping validation as a pure function
// over these facts lets the postgres and in-memory repositories share the
// exact same semantics.
type AssignmentBatchFacts struct {
	// KnownTargets target_uids that exist for the form
	KnownTargets map[string]bool
	// KnownEnumerators enumerator_uids that exist for the form
	KnownEnumerators map[string]bool
	// TargetIDs target_uid -> human target_id, for error messages
	TargetIDs map[string]string
	// EnumeratorIDs enumerator_uid -> human enumerator_id, for error messages
	EnumeratorIDs map[string]string
	// UnassignableTargets target_uids with target_assignable = false.
	// NULL status counts as assignable and must not appear here.
	UnassignableTargets map[string]bool
	// DropoutEnumerators enumerator_uids whose form status is Dropout
	DropoutEnumerators map[string]bool
}

// ValidateAssignmentBatch checks every pair before any mutation and
// aggregates all offending ids per error category. Category precedence:
// missing targets, then missing enumerators, then unassignable targets,
// then Dropout enumerators.
func ValidateAssignmentBatch(pairs []AssignmentPair, facts AssignmentBatchFacts) error {
	var missingTargets []string
	var missingEnumerators []string
	var unassignable []string
	var dropouts []string

	seenTarget := map[string]bool{}
	seenEnum := map[string]bool{}

	for _, p := range pairs {
		if !facts.KnownTargets[p.TargetUID] {
			if !seenTarget[p.TargetUID] {
				missingTargets = append(missingTargets, p.TargetUID)
				seenTarget[p.TargetUID] = true
			}
			continue
		}
		// Unassignable applies to every operation touching the target,
		// including clearing to null.
		if facts.UnassignableTargets[p.TargetUID] && !seenTarget[p.TargetUID] {
			id := facts.TargetIDs[p.TargetUID]
			if id == "" {
				id = p.TargetUID
			}
			unassignable = append(unassignable, id)
			seenTarget[p.TargetUID] = true
		}
		if p.EnumeratorUID == nil {
			continue
		}
		euid := *p.EnumeratorUID
		if !facts.KnownEnumerators[euid] {
			if !seenEnum[euid] {
				missingEnumerators = append(missingEnumerators, euid)
				seenEnum[euid] = true
			}
			continue
		}
		if facts.DropoutEnumerators[euid] && !seenEnum[euid] {
			id := facts.EnumeratorIDs[euid]
			if id == "" {
				id = euid
			}
			dropouts = append(dropouts, id)
			seenEnum[euid] = true
		}
	}

	sort.Strings(missingTargets)
	sort.Strings(missingEnumerators)
	sort.Strings(unassignable)
	sort.Strings(dropouts)

	if len(missingTargets) > 0 {
		return NewTargetsNotFoundError(missingTargets)
	}
	if len(missingEnumerators) > 0 {
		return NewEnumeratorsNotFoundError(missingEnumerators)
	}
	if len(unassignable) > 0 {
		return &UnassignableTargetError{TargetIDs: unassignable}
	}
	if len(dropouts) > 0 {
		return &IneligibleEnumeratorError{EnumeratorIDs: dropouts}
	}
	return nil
}

// ClassifyAssignments diffs the batch against the pre-mutation state.
// current maps target_uid -> assigned enumerator_uid (nil = row exists but
// unassigned; absent key = no row yet).
//   - no row / unassigned -> non-null   = new assignment
//   - assigned -> different non-null    = re-assignment
//   - assigned -> null (clearing)       = re-assignment
//   - value unchanged (incl. null/null) = no change
func ClassifyAssignments(current map[string]*string, pairs []AssignmentPair) AssignmentCounts {
	counts := AssignmentCounts{AssignmentsCount: len(pairs)}
	for _, p := range pairs {
		prev, hadRow := current[p.TargetUID]
		switch {
		case p.EnumeratorUID == nil:
			if hadRow && prev != nil {
				counts.ReAssignmentsCount++
			} else {
				counts.NoChangesCount++
			}
		case !hadRow || prev == nil:
			counts.NewAssignmentsCount++
		case *prev == *p.EnumeratorUID:
			counts.NoChangesCount++
		default:
			counts.ReAssignmentsCount++
		}
	}
	return counts
}

// EnumeratorProductivity derived per-enumerator assignment statistics,
// computed on read against live target statuses
type EnumeratorProductivity struct {
	EnumeratorUID string `json:"enumerator_uid"`
	EnumeratorID  string `json:"enumerator_id"`
	Name          string `json:"name"`
	TotalAssigned int    `json:"total_assigned"`
	TotalComplete int    `json:"total_complete"`
	TotalPending  int    `json:"total_pending"`
}
