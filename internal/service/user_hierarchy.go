package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

// UserHierarchyService resolves a survey's user/role tree: descendant
// sets for access scoping and ancestor chains for supervisor display.
type UserHierarchyService interface {
	// Descendants returns the user's subtree (the user included). Core
	// users (role level 0) see every user in the survey's hierarchy. A
	// user with no hierarchy entry gets an empty set, not an error.
	Descendants(ctx context.Context, surveyUID, userUID string) (map[string]bool, error)

	// AncestorsWithRoles returns the user's supervisor chain ordered most
	// senior (lowest role level) first, ending with the user itself.
	AncestorsWithRoles(ctx context.Context, surveyUID, userUID string) ([]domain.UserAncestor, error)

	// IsCoreUser reports whether the user's role level for the survey is 0
	IsCoreUser(ctx context.Context, surveyUID, userUID string) (bool, error)
}

type userHierarchyService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserHierarchyService(usersRepo repository.UsersRepository, logger *zap.Logger) UserHierarchyService {
	return &userHierarchyService{
		usersRepo: usersRepo,
		logger:    logger,
	}
}

func (s *userHierarchyService) loadTree(ctx context.Context, surveyUID string) (map[string]*domain.UserHierarchyEntry, map[string][]string, map[string]*domain.Role, error) {
	entries, err := s.usersRepo.ListHierarchy(ctx, surveyUID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list user hierarchy: %w", err)
	}
	roles, err := s.usersRepo.ListRoles(ctx, surveyUID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list roles: %w", err)
	}

	roleByUID := map[string]*domain.Role{}
	for _, r := range roles {
		roleByUID[r.RoleUID] = r
	}
	entryByUser := map[string]*domain.UserHierarchyEntry{}
	childrenOf := map[string][]string{}
	for _, e := range entries {
		entryByUser[e.UserUID] = e
		if e.ParentUserUID.Valid {
			childrenOf[e.ParentUserUID.String] = append(childrenOf[e.ParentUserUID.String], e.UserUID)
		}
	}
	return entryByUser, childrenOf, roleByUID, nil
}

func (s *userHierarchyService) Descendants(ctx context.Context, surveyUID, userUID string) (map[string]bool, error) {
	entryByUser, childrenOf, roleByUID, err := s.loadTree(ctx, surveyUID)
	if err != nil {
		return nil, err
	}

	entry, ok := entryByUser[userUID]
	if !ok {
		return map[string]bool{}, nil
	}

	out := map[string]bool{}
	if role, ok := roleByUID[entry.RoleUID]; ok && role.Level == 0 {
		// Core users bypass scoping and see the full hierarchy
		for uid := range entryByUser {
			out[uid] = true
		}
		return out, nil
	}

	queue := []string{userUID}
	for len(queue) > 0 {
		uid := queue[0]
		queue = queue[1:]
		if out[uid] {
			continue
		}
		out[uid] = true
		queue = append(queue, childrenOf[uid]...)
	}
	return out, nil
}

func (s *userHierarchyService) AncestorsWithRoles(ctx context.Context, surveyUID, userUID string) ([]domain.UserAncestor, error) {
	entryByUser, _, roleByUID, err := s.loadTree(ctx, surveyUID)
	if err != nil {
		return nil, err
	}

	if _, ok := entryByUser[userUID]; !ok {
		return []domain.UserAncestor{}, nil
	}

	chain := []domain.UserAncestor{}
	seen := map[string]bool{}
	uid := userUID
	for uid != "" {
		if seen[uid] {
			return nil, &domain.IntegrityError{Message: fmt.Sprintf(
				"user hierarchy contains a cycle at user %s", uid)}
		}
		seen[uid] = true

		entry, ok := entryByUser[uid]
		if !ok {
			break
		}
		a := domain.UserAncestor{UserUID: uid}
		if role, ok := roleByUID[entry.RoleUID]; ok {
			a.RoleName = role.RoleName
			a.Level = role.Level
		}
		if u, err := s.usersRepo.GetUser(ctx, uid); err == nil {
			a.Name = u.Name
			a.Email = u.Email
		}
		chain = append(chain, a)

		if entry.ParentUserUID.Valid {
			uid = entry.ParentUserUID.String
		} else {
			uid = ""
		}
	}

	sort.SliceStable(chain, func(i, j int) bool { return chain[i].Level < chain[j].Level })
	return chain, nil
}

func (s *userHierarchyService) IsCoreUser(ctx context.Context, surveyUID, userUID string) (bool, error) {
	entryByUser, _, roleByUID, err := s.loadTree(ctx, surveyUID)
	if err != nil {
		return false, err
	}
	entry, ok := entryByUser[userUID]
	if !ok {
		return false, nil
	}
	role, ok := roleByUID[entry.RoleUID]
	return ok && role.Level == 0, nil
}
