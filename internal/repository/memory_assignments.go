package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"surveystream-data/internal/domain"
)

// MemoryAssignmentsRepo in-memory AssignmentsRepository. Reads targets and
// enumerators from the sibling memory repos so ApplyBatch runs the same
// domain validation and classification as the postgres implementation.
type MemoryAssignmentsRepo struct {
	mu          sync.Mutex
	targets     *MemoryTargetsRepo
	enumerators *MemoryEnumeratorsRepo
	rows        map[string]map[string]*string // form_uid -> target_uid -> enumerator_uid (nil = unassigned)
}

func NewMemoryAssignmentsRepo(targets *MemoryTargetsRepo, enumerators *MemoryEnumeratorsRepo) *MemoryAssignmentsRepo {
	return &MemoryAssignmentsRepo{
		targets:     targets,
		enumerators: enumerators,
		rows:        map[string]map[string]*string{},
	}
}

func (r *MemoryAssignmentsRepo) ListByForm(ctx context.Context, formUID string) ([]*AssignmentView, error) {
	targets, err := r.targets.ListTargets(ctx, formUID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	current := map[string]*string{}
	for tUID, eUID := range r.rows[formUID] {
		if eUID != nil {
			uid := *eUID
			current[tUID] = &uid
		} else {
			current[tUID] = nil
		}
	}
	r.mu.Unlock()

	out := []*AssignmentView{}
	for _, t := range targets {
		v := &AssignmentView{
			TargetUID:   t.TargetUID,
			TargetID:    t.TargetID,
			Language:    t.Language,
			Gender:      t.Gender,
			LocationUID: t.LocationUID,
		}
		if eUID, ok := current[t.TargetUID]; ok && eUID != nil {
			v.AssignedEnumeratorUID = eUID
			if e, err := r.enumerators.GetEnumerator(ctx, *eUID); err == nil {
				v.EnumeratorID = sql.NullString{String: e.EnumeratorID, Valid: true}
				v.EnumeratorName = sql.NullString{String: e.Name, Valid: true}
				v.EnumeratorEmail = sql.NullString{String: e.Email, Valid: true}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *MemoryAssignmentsRepo) ApplyBatch(ctx context.Context, formUID string, pairs []domain.AssignmentPair) (*domain.AssignmentCounts, error) {
	if formUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}
	if len(pairs) == 0 {
		return &domain.AssignmentCounts{}, nil
	}

	facts, err := r.loadBatchFacts(ctx, formUID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := domain.ValidateAssignmentBatch(pairs, facts); err != nil {
		return nil, err
	}

	current := r.rows[formUID]
	if current == nil {
		current = map[string]*string{}
		r.rows[formUID] = current
	}
	counts := domain.ClassifyAssignments(current, pairs)

	for _, p := range pairs {
		if p.EnumeratorUID != nil {
			uid := *p.EnumeratorUID
			current[p.TargetUID] = &uid
		} else {
			current[p.TargetUID] = nil
		}
	}
	return &counts, nil
}

func (r *MemoryAssignmentsRepo) loadBatchFacts(ctx context.Context, formUID string) (domain.AssignmentBatchFacts, error) {
	facts := domain.AssignmentBatchFacts{
		KnownTargets:        map[string]bool{},
		KnownEnumerators:    map[string]bool{},
		TargetIDs:           map[string]string{},
		EnumeratorIDs:       map[string]string{},
		UnassignableTargets: map[string]bool{},
		DropoutEnumerators:  map[string]bool{},
	}

	targets, err := r.targets.ListTargets(ctx, formUID)
	if err != nil {
		return facts, err
	}
	for _, t := range targets {
		facts.KnownTargets[t.TargetUID] = true
		facts.TargetIDs[t.TargetUID] = t.TargetID
	}
	statuses, err := r.targets.ListTargetStatuses(ctx, formUID)
	if err != nil {
		return facts, err
	}
	for _, s := range statuses {
		if s.TargetAssignable.Valid && !s.TargetAssignable.Bool {
			facts.UnassignableTargets[s.TargetUID] = true
		}
	}

	formStatuses, err := r.enumerators.ListFormStatuses(ctx, formUID)
	if err != nil {
		return facts, err
	}
	for _, sf := range formStatuses {
		facts.KnownEnumerators[sf.EnumeratorUID] = true
		if sf.Status == domain.EnumeratorStatusDropout {
			facts.DropoutEnumerators[sf.EnumeratorUID] = true
		}
	}
	for uid := range facts.KnownEnumerators {
		if e, err := r.enumerators.GetEnumerator(ctx, uid); err == nil {
			facts.EnumeratorIDs[uid] = e.EnumeratorID
		}
	}
	return facts, nil
}

func (r *MemoryAssignmentsRepo) ReleaseByEnumerator(ctx context.Context, formUID, enumeratorUID string) ([]string, error) {
	if formUID == "" || enumeratorUID == "" {
		return nil, fmt.Errorf("form_uid and enumerator_uid are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	released := []string{}
	for tUID, eUID := range r.rows[formUID] {
		if eUID != nil && *eUID == enumeratorUID {
			delete(r.rows[formUID], tUID)
			released = append(released, tUID)
		}
	}
	sort.Strings(released)
	return released, nil
}

func (r *MemoryAssignmentsRepo) Productivity(ctx context.Context, formUID string) ([]*domain.EnumeratorProductivity, error) {
	enums, err := r.enumerators.ListByForm(ctx, formUID)
	if err != nil {
		return nil, err
	}
	formStatuses, err := r.enumerators.ListFormStatuses(ctx, formUID)
	if err != nil {
		return nil, err
	}
	statusByUID := map[string]string{}
	for _, sf := range formStatuses {
		statusByUID[sf.EnumeratorUID] = sf.Status
	}

	statuses, err := r.targets.ListTargetStatuses(ctx, formUID)
	if err != nil {
		return nil, err
	}
	complete := map[string]bool{}
	for _, s := range statuses {
		if s.TargetAssignable.Valid && !s.TargetAssignable.Bool {
			complete[s.TargetUID] = true
		}
	}

	r.mu.Lock()
	assignedBy := map[string][]string{}
	for tUID, eUID := range r.rows[formUID] {
		if eUID != nil {
			assignedBy[*eUID] = append(assignedBy[*eUID], tUID)
		}
	}
	r.mu.Unlock()

	out := []*domain.EnumeratorProductivity{}
	for _, e := range enums {
		if statusByUID[e.EnumeratorUID] == domain.EnumeratorStatusDropout {
			continue
		}
		p := &domain.EnumeratorProductivity{
			EnumeratorUID: e.EnumeratorUID,
			EnumeratorID:  e.EnumeratorID,
			Name:          e.Name,
		}
		for _, tUID := range assignedBy[e.EnumeratorUID] {
			p.TotalAssigned++
			if complete[tUID] {
				p.TotalComplete++
			}
		}
		p.TotalPending = p.TotalAssigned - p.TotalComplete
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnumeratorID < out[j].EnumeratorID })
	return out, nil
}
