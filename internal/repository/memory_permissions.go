package repository

import (
	"context"
	"sync"

	"surveystream-data/internal/domain"
)

// MemoryPermissionsRepo in-memory PermissionsRepository for tests
type MemoryPermissionsRepo struct {
	mu   sync.RWMutex
	rows map[string]*domain.SurveyPermission // user_uid|survey_uid|resource
}

func NewMemoryPermissionsRepo() *MemoryPermissionsRepo {
	return &MemoryPermissionsRepo{rows: map[string]*domain.SurveyPermission{}}
}

func permKey(userUID, surveyUID, resource string) string {
	return userUID + "|" + surveyUID + "|" + resource
}

func (r *MemoryPermissionsRepo) SeedPermission(p *domain.SurveyPermission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.rows[permKey(p.UserUID, p.SurveyUID, p.Resource)] = &cp
}

func (r *MemoryPermissionsRepo) GetPermission(ctx context.Context, userUID, surveyUID, resource string) (*domain.SurveyPermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.rows[permKey(userUID, surveyUID, resource)]; ok {
		cp := *p
		return &cp, nil
	}
	return &domain.SurveyPermission{
		UserUID:   userUID,
		SurveyUID: surveyUID,
		Resource:  resource,
		CanRead:   false,
		CanWrite:  false,
	}, nil
}
