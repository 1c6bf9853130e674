package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// TargetsRepository targets and their pipeline-derived statuses
type TargetsRepository interface {
	ListTargets(ctx context.Context, formUID string) ([]*domain.Target, error)
	GetTarget(ctx context.Context, targetUID string) (*domain.Target, error)

	// Target status: written by the data-quality/status pipeline (via the
	// MQTT broker), read-only for the mapping/assignment core.
	ListTargetStatuses(ctx context.Context, formUID string) ([]*domain.TargetStatus, error)
	UpsertTargetStatus(ctx context.Context, status *domain.TargetStatus) error
}
