package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"surveystream-data/internal/domain"
)

// MemoryTargetsRepo in-memory TargetsRepository for tests and local runs
type MemoryTargetsRepo struct {
	mu       sync.RWMutex
	targets  map[string]*domain.Target
	statuses map[string]*domain.TargetStatus // target_uid -> status
}

func NewMemoryTargetsRepo() *MemoryTargetsRepo {
	return &MemoryTargetsRepo{
		targets:  map[string]*domain.Target{},
		statuses: map[string]*domain.TargetStatus{},
	}
}

func (r *MemoryTargetsRepo) SeedTarget(t *domain.Target) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.TargetUID == "" {
		t.TargetUID = uuid.NewString()
	}
	cp := *t
	r.targets[t.TargetUID] = &cp
	return t.TargetUID
}

func (r *MemoryTargetsRepo) ListTargets(ctx context.Context, formUID string) ([]*domain.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Target{}
	for _, t := range r.targets {
		if t.FormUID == formUID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (r *MemoryTargetsRepo) GetTarget(ctx context.Context, targetUID string) (*domain.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[targetUID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("target not found: target_uid=%s", targetUID)}
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTargetsRepo) ListTargetStatuses(ctx context.Context, formUID string) ([]*domain.TargetStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TargetStatus{}
	for uid, s := range r.statuses {
		t, ok := r.targets[uid]
		if !ok || t.FormUID != formUID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetUID < out[j].TargetUID })
	return out, nil
}

func (r *MemoryTargetsRepo) UpsertTargetStatus(ctx context.Context, status *domain.TargetStatus) error {
	if status == nil || status.TargetUID == "" {
		return fmt.Errorf("target_uid is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *status
	r.statuses[status.TargetUID] = &cp
	return nil
}
