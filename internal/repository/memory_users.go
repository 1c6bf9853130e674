package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"surveystream-data/internal/domain"
)

// MemoryUsersRepo in-memory UsersRepository for tests and local runs
type MemoryUsersRepo struct {
	mu        sync.RWMutex
	roles     map[string]*domain.Role
	users     map[string]*domain.User
	hierarchy map[string][]*domain.UserHierarchyEntry // survey_uid -> entries
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{
		roles:     map[string]*domain.Role{},
		users:     map[string]*domain.User{},
		hierarchy: map[string][]*domain.UserHierarchyEntry{},
	}
}

func (r *MemoryUsersRepo) SeedRole(role *domain.Role) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role.RoleUID == "" {
		role.RoleUID = uuid.NewString()
	}
	cp := *role
	r.roles[role.RoleUID] = &cp
	return role.RoleUID
}

func (r *MemoryUsersRepo) SeedUser(u *domain.User) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.UserUID == "" {
		u.UserUID = uuid.NewString()
	}
	cp := *u
	r.users[u.UserUID] = &cp
	return u.UserUID
}

func (r *MemoryUsersRepo) SeedHierarchyEntry(e *domain.UserHierarchyEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.hierarchy[e.SurveyUID] = append(r.hierarchy[e.SurveyUID], &cp)
}

func (r *MemoryUsersRepo) ListRoles(ctx context.Context, surveyUID string) ([]*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Role{}
	for _, role := range r.roles {
		if role.SurveyUID == surveyUID {
			cp := *role
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r *MemoryUsersRepo) ListUsers(ctx context.Context, surveyUID string) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.User{}
	for _, e := range r.hierarchy[surveyUID] {
		if u, ok := r.users[e.UserUID]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *MemoryUsersRepo) GetUser(ctx context.Context, userUID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userUID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("user not found: user_uid=%s", userUID)}
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUsersRepo) ListHierarchy(ctx context.Context, surveyUID string) ([]*domain.UserHierarchyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.UserHierarchyEntry{}
	for _, e := range r.hierarchy[surveyUID] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
