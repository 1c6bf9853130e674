package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// UsersRepository survey roles, users and the reporting hierarchy
type UsersRepository interface {
	// Role operations (ordered by level ascending, 0 = core)
	ListRoles(ctx context.Context, surveyUID string) ([]*domain.Role, error)

	// User operations. ListUsers returns every user with a hierarchy entry
	// for the survey, with languages and location links loaded.
	ListUsers(ctx context.Context, surveyUID string) ([]*domain.User, error)
	GetUser(ctx context.Context, userUID string) (*domain.User, error)

	// Hierarchy operations
	ListHierarchy(ctx context.Context, surveyUID string) ([]*domain.UserHierarchyEntry, error)
}
