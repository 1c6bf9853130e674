package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// PermissionsRepository the permission gate's backing rows. The rows are
// managed elsewhere; the core only reads them. A missing row means no
// access (most restrictive default).
type PermissionsRepository interface {
	GetPermission(ctx context.Context, userUID, surveyUID, resource string) (*domain.SurveyPermission, error)
}
