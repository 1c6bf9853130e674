package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"surveystream-data/internal/domain"
)

// MemoryEnumeratorsRepo in-memory EnumeratorsRepository for tests and local runs
type MemoryEnumeratorsRepo struct {
	mu          sync.RWMutex
	enumerators map[string]*domain.Enumerator
	formStatus  map[string]map[string]string // form_uid -> enumerator_uid -> status
}

func NewMemoryEnumeratorsRepo() *MemoryEnumeratorsRepo {
	return &MemoryEnumeratorsRepo{
		enumerators: map[string]*domain.Enumerator{},
		formStatus:  map[string]map[string]string{},
	}
}

// SeedEnumerator stores the enumerator and its status on the given form
func (r *MemoryEnumeratorsRepo) SeedEnumerator(e *domain.Enumerator, formUID, status string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.EnumeratorUID == "" {
		e.EnumeratorUID = uuid.NewString()
	}
	cp := *e
	r.enumerators[e.EnumeratorUID] = &cp
	if formUID != "" {
		if r.formStatus[formUID] == nil {
			r.formStatus[formUID] = map[string]string{}
		}
		if status == "" {
			status = domain.EnumeratorStatusActive
		}
		r.formStatus[formUID][e.EnumeratorUID] = status
	}
	return e.EnumeratorUID
}

func (r *MemoryEnumeratorsRepo) ListByForm(ctx context.Context, formUID string) ([]*domain.Enumerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Enumerator{}
	for uid := range r.formStatus[formUID] {
		if e, ok := r.enumerators[uid]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnumeratorID < out[j].EnumeratorID })
	return out, nil
}

func (r *MemoryEnumeratorsRepo) GetEnumerator(ctx context.Context, enumeratorUID string) (*domain.Enumerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enumerators[enumeratorUID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("enumerator not found: enumerator_uid=%s", enumeratorUID)}
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryEnumeratorsRepo) ListFormStatuses(ctx context.Context, formUID string) ([]*domain.SurveyorForm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.SurveyorForm{}
	for uid, status := range r.formStatus[formUID] {
		out = append(out, &domain.SurveyorForm{
			EnumeratorUID: uid,
			FormUID:       formUID,
			Status:        status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnumeratorUID < out[j].EnumeratorUID })
	return out, nil
}

func (r *MemoryEnumeratorsRepo) UpdateFormStatus(ctx context.Context, enumeratorUID, formUID, status string) error {
	switch status {
	case domain.EnumeratorStatusActive, domain.EnumeratorStatusTempInactive, domain.EnumeratorStatusDropout:
	default:
		return fmt.Errorf("invalid status: %s", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses, ok := r.formStatus[formUID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf(
			"surveyor form status not found: enumerator_uid=%s form_uid=%s", enumeratorUID, formUID)}
	}
	if _, ok := statuses[enumeratorUID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf(
			"surveyor form status not found: enumerator_uid=%s form_uid=%s", enumeratorUID, formUID)}
	}
	statuses[enumeratorUID] = status
	return nil
}
